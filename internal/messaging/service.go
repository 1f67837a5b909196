// ABOUTME: Message service: send/record chat messages and list history
// ABOUTME: Timestamps come from a monotonic clock so listing order is stable

package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantumchat/qchat/internal/store"
)

// ErrEmptyMessage is returned when the message content is blank.
var ErrEmptyMessage = errors.New("message content is empty")

// Service persists chat messages for the local user.
type Service struct {
	db     *store.DB
	logger *slog.Logger

	// mu guards last so timestamps assigned by this service strictly
	// increase even when the wall clock stalls or steps backwards.
	mu   sync.Mutex
	last time.Time
}

// NewService creates a message service over db.
func NewService(db *store.DB) *Service {
	return &Service{
		db:     db,
		logger: slog.Default().With("component", "messaging"),
	}
}

// now returns a monotonically increasing timestamp with at least millisecond
// resolution.
func (s *Service) now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Millisecond)
	}
	s.last = now
	return now
}

// Send persists an outgoing message to contactID and returns it.
func (s *Service) Send(ctx context.Context, contactID, content string) (*store.Message, error) {
	return s.save(ctx, contactID, content, true)
}

// Record persists an incoming message from contactID and returns it.
func (s *Service) Record(ctx context.Context, contactID, content string) (*store.Message, error) {
	return s.save(ctx, contactID, content, false)
}

func (s *Service) save(ctx context.Context, contactID, content string, outgoing bool) (*store.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	msg := &store.Message{
		ID:         uuid.NewString(),
		ContactID:  contactID,
		Content:    content,
		Timestamp:  s.now(),
		IsOutgoing: outgoing,
		Encrypted:  true,
	}

	if err := s.db.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}

	s.logger.Debug("message saved", "id", msg.ID, "contact_id", contactID, "outgoing", outgoing)
	return msg, nil
}

// History returns the conversation with contactID, oldest first. History
// survives deletion of the contact.
func (s *Service) History(ctx context.Context, contactID string) ([]*store.Message, error) {
	return s.db.GetMessagesFor(ctx, contactID)
}
