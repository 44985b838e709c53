// Package resolver provides display names for member identifiers,
// backed by the local contact book.
package resolver

import (
	"fmt"
	"log/slog"

	"group-lab/errors"
	"group-lab/repositories"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 1024

// ContactResolver implements narrator.Resolver on top of the contact repository.
// Resolved names are cached; misses are not, so a contact stored later is picked up.
type ContactResolver struct {
	repository repositories.IContactRepository
	cache      *lru.Cache[string, string]
	log        *slog.Logger
}

func NewContactResolver(repository repositories.IContactRepository, log *slog.Logger, cacheSize int) (*ContactResolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &ContactResolver{repository: repository, cache: cache, log: log}, nil
}

func (r *ContactResolver) DisplayName(id string) (string, error) {
	if name, ok := r.cache.Get(id); ok {
		return name, nil
	}
	contact, err := r.repository.GetContact(id)
	if err != nil {
		return "", err
	}
	name := contact.DisplayName()
	if name == "" {
		return "", fmt.Errorf("%w: %s has no name", errors.ErrContactNotFound, id)
	}
	r.cache.Add(id, name)
	r.log.Debug("Display name cached", "member", id)
	return name, nil
}

// StoreContact saves the contact and drops any cached name for it.
func (r *ContactResolver) StoreContact(contact repositories.Contact) error {
	if err := r.repository.StoreContact(contact); err != nil {
		return err
	}
	r.Forget(contact.ID)
	return nil
}

func (r *ContactResolver) Forget(id string) {
	r.cache.Remove(id)
}
