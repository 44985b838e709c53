//go:generate go run go.uber.org/mock/mockgen -source=update.go -destination=../mocks/mock_update_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"group-lab/domain/group"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUpdateRepository interface {
	Store(update Update) error
	GetUpdates(groupID group.ID, cursor *string) ([]Update, *string, error)
}

type UpdateRepository struct {
	db           *badger.DB
	log          *slog.Logger
	limitUpdates *int
}

func NewUpdateRepository(db *badger.DB, log *slog.Logger, limitUpdates *int) UpdateRepository {
	return UpdateRepository{db: db, log: log, limitUpdates: limitUpdates}
}

// Update is one accepted change of a group, kept as an audit log entry.
type Update struct {
	ID         uuid.UUID
	GroupID    group.ID
	At         time.Time
	Kinds      []string
	Statements []string
	Narrative  string
}

type diskUpdate struct {
	ID         string   `json:"id"`
	GroupID    string   `json:"group_id"`
	At         int64    `json:"at"`
	Kinds      []string `json:"kinds"`
	Statements []string `json:"statements"`
	Narrative  string   `json:"narrative"`
}

func updatePrefix(groupID group.ID) string {
	return fmt.Sprintf("update:%s:", groupID)
}

// Store persists an update under "update:{group_id}:{timestamp_padded}:{uuid}".
// The 19-digit padding keeps keys in chronological order and the uuid
// separates two updates recorded in the same nanosecond.
func (u UpdateRepository) Store(update Update) error {
	return u.db.Update(func(txn *badger.Txn) error {
		return setUpdate(txn, update)
	})
}

func setUpdate(txn *badger.Txn, update Update) error {
	key := fmt.Sprintf("%s%019d:%s",
		updatePrefix(update.GroupID),
		update.At.UnixNano(),
		update.ID,
	)
	bytes, err := json.Marshal(fromUpdate(update))
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), bytes)
}

// GetUpdates walks the log of one group backwards, newest first.
// The returned cursor resumes right after the last update of the page;
// it is nil once the log is exhausted.
func (u UpdateRepository) GetUpdates(groupID group.ID, cursor *string) ([]Update, *string, error) {
	var values [][]byte
	var lastKey string
	exhausted := true
	err := u.db.View(func(txn *badger.Txn) error {
		prefixStr := updatePrefix(groupID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			seekKey = append([]byte(prefixStr), []byte("9999999999999999999")...)
		default:
			seekKey = append([]byte(prefixStr), []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if u.limitUpdates != nil && len(values) == *u.limitUpdates {
				u.log.Debug(fmt.Sprintf("Maximum of %d updates reached", *u.limitUpdates))
				exhausted = false
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			err := item.Value(func(value []byte) error {
				values = append(values, value)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	updates := make([]Update, 0, len(values))
	for _, value := range values {
		var disk diskUpdate
		if err := json.Unmarshal(value, &disk); err != nil {
			return nil, nil, err
		}
		update, err := toUpdate(disk)
		if err != nil {
			return nil, nil, err
		}
		updates = append(updates, update)
	}
	if exhausted {
		return updates, nil, nil
	}
	return updates, &lastKey, nil
}

func fromUpdate(update Update) diskUpdate {
	return diskUpdate{
		ID:         update.ID.String(),
		GroupID:    update.GroupID.String(),
		At:         update.At.UnixNano(),
		Kinds:      update.Kinds,
		Statements: update.Statements,
		Narrative:  update.Narrative,
	}
}

func toUpdate(disk diskUpdate) (Update, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return Update{}, err
	}
	groupID, err := group.ParseIDString(disk.GroupID)
	if err != nil {
		return Update{}, err
	}
	return Update{
		ID:         id,
		GroupID:    groupID,
		At:         time.Unix(0, disk.At).UTC(),
		Kinds:      disk.Kinds,
		Statements: disk.Statements,
		Narrative:  disk.Narrative,
	}, nil
}
