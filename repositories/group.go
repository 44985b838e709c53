//go:generate go run go.uber.org/mock/mockgen -source=group.go -destination=../mocks/mock_group_repository.go -package=mocks
package repositories

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"group-lab/domain/group"
	domainerrors "group-lab/errors"

	"github.com/dgraph-io/badger/v4"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const groupPrefix = "group:"

// IGroupRepository keeps the latest snapshot of each group. A non-nil update
// is appended to the group history in the same transaction as the snapshot.
type IGroupRepository interface {
	Create(state group.State, update *Update) error
	Store(state group.State, update *Update) error
	Get(id group.ID) (group.State, error)
	List() ([]group.State, error)
}

type GroupRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewGroupRepository(db *badger.DB, log *slog.Logger) GroupRepository {
	return GroupRepository{db: db, log: log}
}

// DiskGroup is the stored form of a snapshot.
type DiskGroup struct {
	ID                string   `json:"id"`
	Name              *string  `json:"name,omitempty"`
	MemberIDs         []string `json:"member_ids"`
	AdminIDs          []string `json:"admin_ids,omitempty"`
	CanOnlyWriteAdmin bool     `json:"can_only_write_admin"`
	Avatar            []byte   `json:"avatar,omitempty"`
	StoredAt          int64    `json:"stored_at"`
}

func groupKey(id group.ID) []byte {
	return []byte(groupPrefix + id.String())
}

// Create stores the first snapshot of a group and refuses to overwrite an existing one.
func (g GroupRepository) Create(state group.State, update *Update) error {
	bytes, err := json.Marshal(fromGroupState(state))
	if err != nil {
		return err
	}
	return g.db.Update(func(txn *badger.Txn) error {
		key := groupKey(state.ID())
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("%w: %s", domainerrors.ErrGroupAlreadyExists, state.ID())
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return setGroupUpdate(txn, state.ID(), update)
	})
}

// Store replaces the latest snapshot of a group.
// Nothing is written when the update cannot be recorded.
func (g GroupRepository) Store(state group.State, update *Update) error {
	bytes, err := json.Marshal(fromGroupState(state))
	if err != nil {
		return err
	}
	return g.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(groupKey(state.ID()), bytes); err != nil {
			return err
		}
		return setGroupUpdate(txn, state.ID(), update)
	})
}

func setGroupUpdate(txn *badger.Txn, id group.ID, update *Update) error {
	if update == nil {
		return nil
	}
	if update.GroupID != id {
		return fmt.Errorf("update %s belongs to group %s, not %s", update.ID, update.GroupID, id)
	}
	return setUpdate(txn, *update)
}

func (g GroupRepository) Get(id group.ID) (group.State, error) {
	var disk DiskGroup
	err := g.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(groupKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &disk)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return group.State{}, fmt.Errorf("%w: %s", domainerrors.ErrGroupNotFound, id)
	}
	if err != nil {
		return group.State{}, err
	}
	return toGroupState(disk)
}

// List returns every stored group, ordered by identity.
// Records that no longer satisfy the snapshot invariants are skipped.
func (g GroupRepository) List() ([]group.State, error) {
	var disks []DiskGroup
	err := g.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(groupPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var disk DiskGroup
				if err := json.Unmarshal(val, &disk); err != nil {
					return err
				}
				disks = append(disks, disk)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	states := make([]group.State, 0, len(disks))
	for _, disk := range disks {
		state, err := toGroupState(disk)
		if err != nil {
			g.log.Warn("Skipping invalid stored group", "group", disk.ID, "error", err)
			continue
		}
		states = append(states, state)
	}
	return states, nil
}

func fromGroupState(state group.State) DiskGroup {
	p := state.Params()
	return DiskGroup{
		ID:                p.ID.String(),
		Name:              p.Name,
		MemberIDs:         p.MemberIDs,
		AdminIDs:          p.AdminIDs,
		CanOnlyWriteAdmin: p.CanOnlyWriteAdmin,
		Avatar:            p.Avatar,
		StoredAt:          time.Now().UnixNano(),
	}
}

// toGroupState goes through group.FromParams so stored data is validated again.
func toGroupState(disk DiskGroup) (group.State, error) {
	id, err := group.ParseIDString(disk.ID)
	if err != nil {
		return group.State{}, err
	}
	return group.FromParams(group.Params{
		ID:                id,
		Name:              disk.Name,
		MemberIDs:         disk.MemberIDs,
		AdminIDs:          disk.AdminIDs,
		CanOnlyWriteAdmin: disk.CanOnlyWriteAdmin,
		Avatar:            disk.Avatar,
	})
}
