// ABOUTME: Tests for the session state machine and its subscription contract
// ABOUTME: Covers validation, single-account sign-up, replay-on-join and listener isolation

package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumchat/qchat/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := NewManager(db)
	require.NoError(t, m.Initialize(context.Background()))
	return m, db
}

func TestInitialize_NoAccount(t *testing.T) {
	m, _ := newTestManager(t)

	state := m.CurrentState()
	assert.False(t, state.Authenticated)
	assert.Nil(t, state.User)
}

func TestInitialize_RestoresAccount(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, db.SaveUser(ctx, &store.User{ID: "u1", Email: "a@gmail.com", Username: "alice"}))

	m := NewManager(db)
	require.NoError(t, m.Initialize(ctx))

	state := m.CurrentState()
	assert.True(t, state.Authenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "alice", state.User.Username)
}

func TestSignUp(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()

	user, err := m.SignUp(ctx, "x@gmail.com", "Abcdef1", "bob")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "bob", user.Username)
	assert.NotEmpty(t, user.PasswordHash, "sign-up must store a password hash")

	state := m.CurrentState()
	assert.True(t, state.Authenticated)
	assert.Equal(t, "bob", state.User.Username)

	// Persisted, not just cached
	stored, err := db.GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
}

func TestSignUp_SecondAccountRejected(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.SignUp(ctx, "x@gmail.com", "Abcdef1", "bob")
	require.NoError(t, err)

	// Regardless of input, a second sign-up fails
	_, err = m.SignUp(ctx, "other@gmail.com", "Zyxwvu9", "carol")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestSignUp_Validation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		username string
		field    string
	}{
		{"non-gmail address", "x@example.com", "Abcdef1", "bob", "email"},
		{"missing local part", "@gmail.com", "Abcdef1", "bob", "email"},
		{"whitespace in email", "a b@gmail.com", "Abcdef1", "bob", "email"},
		{"password too short", "x@gmail.com", "Ab1", "bob", "password"},
		{"password no uppercase", "x@gmail.com", "abcdef1", "bob", "password"},
		{"password no lowercase", "x@gmail.com", "ABCDEF1", "bob", "password"},
		{"password no digit", "x@gmail.com", "Abcdefg", "bob", "password"},
		{"username too short", "x@gmail.com", "Abcdef1", "ab", "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t)

			_, err := m.SignUp(context.Background(), tt.email, tt.password, tt.username)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.NotEmpty(t, verr.Reason)

			// Nothing transitioned
			assert.False(t, m.CurrentState().Authenticated)
		})
	}
}

func TestSignUp_UppercaseDomainAccepted(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.SignUp(context.Background(), "x@GMAIL.com", "Abcdef1", "bob")
	assert.NoError(t, err)
}

func TestSignIn(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.SignUp(ctx, "x@gmail.com", "Abcdef1", "bob")
	require.NoError(t, err)
	m.SignOut()
	require.False(t, m.CurrentState().Authenticated)

	user, err := m.SignIn(ctx, "x@gmail.com", "Abcdef1")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)

	state := m.CurrentState()
	assert.True(t, state.Authenticated)
	assert.Equal(t, "bob", state.User.Username)
}

func TestSignIn_WrongPassword(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.SignUp(ctx, "x@gmail.com", "Abcdef1", "bob")
	require.NoError(t, err)
	m.SignOut()

	_, err = m.SignIn(ctx, "x@gmail.com", "WrongPw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, m.CurrentState().Authenticated)
}

func TestSignIn_LegacyAccountWithoutHash(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	// Record shaped like one written by the original app: no password hash
	require.NoError(t, db.SaveUser(ctx, &store.User{ID: "u1", Email: "x@gmail.com", Username: "bob"}))

	m := NewManager(db)
	require.NoError(t, m.Initialize(ctx))
	m.SignOut()

	// Email match is enough for legacy records
	user, err := m.SignIn(ctx, "x@gmail.com", "anything")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
}

func TestSignIn_NoAccount(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.SignIn(context.Background(), "ghost@gmail.com", "Abcdef1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignIn_EmailMismatch(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.SignUp(ctx, "x@gmail.com", "Abcdef1", "bob")
	require.NoError(t, err)
	m.SignOut()

	_, err = m.SignIn(ctx, "y@gmail.com", "Abcdef1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignIn_FailureNotifiesNobody(t *testing.T) {
	m, _ := newTestManager(t)

	var calls []State
	unsubscribe := m.Subscribe(func(s State) { calls = append(calls, s) })
	defer unsubscribe()
	require.Len(t, calls, 1, "replay on join")

	_, err := m.SignIn(context.Background(), "ghost@gmail.com", "Abcdef1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Len(t, calls, 1, "failed sign-in must not notify subscribers")
}

func TestSignOut_KeepsStoredAccount(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()

	_, err := m.SignUp(ctx, "x@gmail.com", "Abcdef1", "bob")
	require.NoError(t, err)

	m.SignOut()
	assert.False(t, m.CurrentState().Authenticated)

	// The account stays for a later sign-in
	_, err = db.GetUser(ctx)
	assert.NoError(t, err)
}

func TestSubscribe_ReplayOnJoin(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.SignUp(ctx, "x@gmail.com", "Abcdef1", "bob")
	require.NoError(t, err)

	// Replay happens synchronously inside Subscribe
	var replayed *State
	unsubscribe := m.Subscribe(func(s State) {
		if replayed == nil {
			replayed = &s
		}
	})
	defer unsubscribe()

	require.NotNil(t, replayed, "subscribe must deliver the current state before returning")
	assert.True(t, replayed.Authenticated)
	assert.Equal(t, "bob", replayed.User.Username)
}

func TestSubscribe_OrderMatchesSubscription(t *testing.T) {
	m, _ := newTestManager(t)

	var order []string
	u1 := m.Subscribe(func(State) { order = append(order, "first") })
	defer u1()
	u2 := m.Subscribe(func(State) { order = append(order, "second") })
	defer u2()

	order = nil
	m.SignOut()

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	m, _ := newTestManager(t)

	calls := 0
	unsubscribe := m.Subscribe(func(State) { calls++ })
	require.Equal(t, 1, calls)

	unsubscribe()
	unsubscribe() // second call is a safe no-op

	m.SignOut()
	assert.Equal(t, 1, calls, "unsubscribed listener must not be notified")
}

func TestSubscribe_PanickingListenerIsolated(t *testing.T) {
	m, _ := newTestManager(t)

	u1 := m.Subscribe(func(State) { panic("listener failure") })
	defer u1()

	calls := 0
	u2 := m.Subscribe(func(State) { calls++ })
	defer u2()
	require.Equal(t, 1, calls)

	// The panicking listener must not stop delivery to the next one
	m.SignOut()
	assert.Equal(t, 2, calls)
}

func TestRefresh_RepublishesUpdatedUser(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()

	_, err := m.SignUp(ctx, "x@gmail.com", "Abcdef1", "bob")
	require.NoError(t, err)

	username := "bobby"
	_, err = db.UpdateUser(ctx, store.UserUpdate{Username: &username})
	require.NoError(t, err)

	var last State
	unsubscribe := m.Subscribe(func(s State) { last = s })
	defer unsubscribe()
	assert.Equal(t, "bob", last.User.Username, "cache not refreshed yet")

	require.NoError(t, m.Refresh(ctx))
	assert.Equal(t, "bobby", last.User.Username)
	assert.True(t, last.Authenticated)
}
