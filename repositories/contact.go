//go:generate go run go.uber.org/mock/mockgen -source=contact.go -destination=../mocks/mock_contact_repository.go -package=mocks
package repositories

import (
	"errors"
	"fmt"
	"strings"

	domainerrors "group-lab/errors"

	"github.com/dgraph-io/badger/v4"
)

type IContactRepository interface {
	StoreContact(contact Contact) error
	GetContact(id string) (Contact, error)
}

type ContactRepository struct {
	db *badger.DB
}

func NewContactRepository(db *badger.DB) IContactRepository {
	return &ContactRepository{db: db}
}

// Contact is what the local address book knows about a member identifier.
type Contact struct {
	ID          string `json:"id"`
	ContactName string `json:"contact_name,omitempty"` // name saved by the local user
	ProfileName string `json:"profile_name,omitempty"` // name published by the member
}

// DisplayName prefers the locally saved name over the published profile name.
func (c Contact) DisplayName() string {
	if name := strings.TrimSpace(c.ContactName); name != "" {
		return name
	}
	return strings.TrimSpace(c.ProfileName)
}

func (c ContactRepository) StoreContact(contact Contact) error {
	data, err := json.Marshal(contact)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("contact:"+contact.ID), data)
	})
}

func (c ContactRepository) GetContact(id string) (Contact, error) {
	var contact Contact
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("contact:" + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &contact)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Contact{}, fmt.Errorf("%w: %s", domainerrors.ErrContactNotFound, id)
	}
	if err != nil {
		return Contact{}, err
	}
	return contact, nil
}
