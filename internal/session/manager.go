// ABOUTME: Single-writer session state machine backed by the users collection
// ABOUTME: Publishes Authenticated/Unauthenticated transitions to subscribers in order

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/quantumchat/qchat/internal/store"
)

// ErrUserExists is returned by SignUp when an account already exists on this
// device.
var ErrUserExists = errors.New("user already exists")

// ErrInvalidCredentials is returned by SignIn when no account exists, the
// email does not match, or the password fails verification.
var ErrInvalidCredentials = errors.New("invalid credentials")

// State is the session snapshot delivered to subscribers.
type State struct {
	Authenticated bool
	User          *store.User
}

// Listener receives session state. Called synchronously on the goroutine that
// triggered the transition, once on subscribe with the current state and then
// on every transition.
type Listener func(State)

type subscriber struct {
	id int
	fn Listener
}

// Manager is the single source of truth for whether a local identity is
// signed in. It holds a cached copy of the stored user and refreshes it on
// every mutating operation.
type Manager struct {
	db     *store.DB
	logger *slog.Logger

	// opMu serializes the mutating operations so the state machine has a
	// single writer.
	opMu sync.Mutex

	mu     sync.Mutex
	state  State
	subs   []subscriber
	nextID int
}

// NewManager creates a session manager over db. Callers run Initialize once
// at startup before anything else.
func NewManager(db *store.DB) *Manager {
	return &Manager{
		db:     db,
		logger: slog.Default().With("component", "session"),
	}
}

// Initialize loads the stored user and enters Authenticated if one exists.
// Subscribers registered before Initialize are notified of the outcome.
func (m *Manager) Initialize(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	user, err := m.db.GetUser(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		m.transition(State{})
		return nil
	case err != nil:
		return fmt.Errorf("loading user: %w", err)
	}

	m.logger.Info("restored session", "username", user.Username)
	m.transition(State{Authenticated: true, User: user})
	return nil
}

// CurrentState returns the current session state.
func (m *Manager) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn and immediately invokes it once, synchronously, with
// the current state. Listeners are notified in subscription order. The
// returned handle removes the listener; calling it more than once is a safe
// no-op.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	sub := subscriber{id: id, fn: fn}
	m.subs = append(m.subs, sub)
	current := m.state
	m.mu.Unlock()

	m.invoke(sub, current)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// SignUp validates the credentials, persists a new account and enters
// Authenticated. At most one account exists per device: a second sign-up
// fails with ErrUserExists regardless of input.
func (m *Manager) SignUp(ctx context.Context, email, password, username string) (*store.User, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	_, err := m.db.GetUser(ctx)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		CreatedAt:    time.Now().UTC(),
		PasswordHash: string(hash),
	}

	if err := m.db.SaveUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConstraint) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("saving user: %w", err)
	}

	m.logger.Info("account created", "username", username)
	m.transition(State{Authenticated: true, User: user})
	return user, nil
}

// SignIn validates the email and enters Authenticated when it matches the
// stored account. Accounts created by this version verify the password
// against the stored bcrypt hash; records written by earlier versions carry
// no hash and match on email alone. Failure causes no transition and no
// notification.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*store.User, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user, err := m.db.GetUser(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if user.Email != email {
		return nil, ErrInvalidCredentials
	}
	if user.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	m.logger.Info("signed in", "username", user.Username)
	m.transition(State{Authenticated: true, User: user})
	return user, nil
}

// SignOut unconditionally enters Unauthenticated and notifies subscribers.
// The persisted account is kept for a later SignIn.
func (m *Manager) SignOut() {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.logger.Info("signed out")
	m.transition(State{})
}

// Refresh reloads the cached user from the store without changing the
// authentication flag, and republishes the state. Profile updates call this
// after writing through the database.
func (m *Manager) Refresh(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	authenticated := m.state.Authenticated
	m.mu.Unlock()
	if !authenticated {
		return nil
	}

	user, err := m.db.GetUser(ctx)
	if err != nil {
		return fmt.Errorf("reloading user: %w", err)
	}
	m.transition(State{Authenticated: true, User: user})
	return nil
}

// transition stores the new state and notifies every subscriber in
// subscription order, synchronously, on the calling goroutine.
func (m *Manager) transition(s State) {
	m.mu.Lock()
	m.state = s
	subs := make([]subscriber, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, sub := range subs {
		m.invoke(sub, s)
	}
}

// invoke delivers state to one listener, isolating panics so one failing
// listener cannot block the rest.
func (m *Manager) invoke(sub subscriber, s State) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("session listener panicked", "sub_id", sub.id, "panic", r)
		}
	}()
	sub.fn(s)
}
