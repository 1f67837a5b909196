// ABOUTME: Contact management service: add, list, verify, remove
// ABOUTME: Verification is monotonic and removal never touches message history

package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quantumchat/qchat/internal/store"
)

// ErrNameRequired is returned by Add when the contact name is blank.
var ErrNameRequired = errors.New("contact name is required")

// ErrUsernameRequired is returned by Add when the contact username is blank.
var ErrUsernameRequired = errors.New("contact username is required")

// Service manages the local user's contacts.
type Service struct {
	db     *store.DB
	logger *slog.Logger
}

// NewService creates a contact service over db.
func NewService(db *store.DB) *Service {
	return &Service{
		db:     db,
		logger: slog.Default().With("component", "contacts"),
	}
}

// Add creates a contact with a fresh id and safety number. The contact starts
// unverified.
func (s *Service) Add(ctx context.Context, name, username string) (*store.Contact, error) {
	name = strings.TrimSpace(name)
	username = strings.TrimSpace(username)
	if name == "" {
		return nil, ErrNameRequired
	}
	if username == "" {
		return nil, ErrUsernameRequired
	}

	safetyNumber, err := generateSafetyNumber()
	if err != nil {
		return nil, err
	}

	contact := &store.Contact{
		ID:           uuid.NewString(),
		Name:         name,
		Username:     username,
		Verified:     false,
		SafetyNumber: safetyNumber,
		AddedAt:      time.Now().UTC(),
	}

	if err := s.db.SaveContact(ctx, contact); err != nil {
		return nil, fmt.Errorf("saving contact: %w", err)
	}

	s.logger.Info("contact added", "id", contact.ID, "username", username)
	return contact, nil
}

// List returns all contacts ordered by when they were added, oldest first.
func (s *Service) List(ctx context.Context) ([]*store.Contact, error) {
	contacts, err := s.db.GetContacts(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(contacts, func(i, j int) bool {
		if contacts[i].AddedAt.Equal(contacts[j].AddedAt) {
			return contacts[i].ID < contacts[j].ID
		}
		return contacts[i].AddedAt.Before(contacts[j].AddedAt)
	})
	return contacts, nil
}

// Get returns one contact by id, or store.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*store.Contact, error) {
	return s.db.GetContact(ctx, id)
}

// FindByUsername returns the contacts matching username via the secondary
// index. Usernames are not unique.
func (s *Service) FindByUsername(ctx context.Context, username string) ([]*store.Contact, error) {
	return s.db.ContactsByUsername(ctx, username)
}

// Verify marks the contact verified. Verification is one-way: there is no
// operation that unsets it, and verifying twice is a no-op. The safety number
// assigned at creation is kept so both sides keep comparing the same value.
func (s *Service) Verify(ctx context.Context, id string) (*store.Contact, error) {
	contact, err := s.db.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if contact.Verified {
		return contact, nil
	}

	contact.Verified = true
	if err := s.db.SaveContact(ctx, contact); err != nil {
		return nil, fmt.Errorf("saving verified contact: %w", err)
	}

	s.logger.Info("contact verified", "id", id)
	return contact, nil
}

// Remove deletes the contact. Its messages are intentionally left in place.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.db.DeleteContact(ctx, id); err != nil {
		return err
	}
	s.logger.Info("contact removed", "id", id)
	return nil
}
