// ABOUTME: Device settings service: load-or-default plus individual toggles
// ABOUTME: Every mutation refreshes the lastUpdated stamp on the singleton

package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quantumchat/qchat/internal/session"
	"github.com/quantumchat/qchat/internal/store"
)

// ErrUsernameRequired is returned by UpdateProfile when the new username is
// blank.
var ErrUsernameRequired = errors.New("username is required")

// Service manages the settings singleton and profile updates.
type Service struct {
	db       *store.DB
	sessions *session.Manager
	logger   *slog.Logger
}

// NewService creates a settings service. sessions may be nil when no session
// manager is in play (profile updates then skip the state republish).
func NewService(db *store.DB, sessions *session.Manager) *Service {
	return &Service{
		db:       db,
		sessions: sessions,
		logger:   slog.Default().With("component", "settings"),
	}
}

// Load returns the stored settings, persisting and returning the defaults on
// first use so exactly one settings record exists from then on.
func (s *Service) Load(ctx context.Context) (*store.Settings, error) {
	settings, err := s.db.GetSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	settings = &store.Settings{
		ID:          store.SettingsKey,
		LastUpdated: time.Now().UTC(),
	}
	if err := s.db.SaveSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("saving default settings: %w", err)
	}
	s.logger.Info("settings initialized with defaults")
	return settings, nil
}

// SetHybridMode toggles hybrid mode and refreshes lastUpdated.
func (s *Service) SetHybridMode(ctx context.Context, enabled bool) (*store.Settings, error) {
	return s.update(ctx, func(st *store.Settings) {
		st.HybridMode = enabled
	})
}

// SetDeviceVerified toggles the device verification flag and refreshes
// lastUpdated.
func (s *Service) SetDeviceVerified(ctx context.Context, verified bool) (*store.Settings, error) {
	return s.update(ctx, func(st *store.Settings) {
		st.DeviceVerified = verified
	})
}

// update applies a read-modify-write on the singleton.
func (s *Service) update(ctx context.Context, apply func(*store.Settings)) (*store.Settings, error) {
	settings, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	apply(settings)
	settings.LastUpdated = time.Now().UTC()
	if err := s.db.SaveSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("saving settings: %w", err)
	}
	return settings, nil
}

// UpdateProfile changes the local user's username and, optionally, avatar,
// then republishes session state so subscribers see the new profile.
func (s *Service) UpdateProfile(ctx context.Context, username string, avatar *string) (*store.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	user, err := s.db.UpdateUser(ctx, store.UserUpdate{
		Username: &username,
		Avatar:   avatar,
	})
	if err != nil {
		return nil, err
	}

	if s.sessions != nil {
		if err := s.sessions.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("refreshing session: %w", err)
		}
	}

	s.logger.Info("profile updated", "username", username)
	return user, nil
}
