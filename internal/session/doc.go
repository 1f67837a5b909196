// Package session holds the authentication state machine for the local
// account.
//
// # State machine
//
// Two states: Unauthenticated and Authenticated(user). Transitions:
//
//   - Initialize: loads the stored user at startup
//   - SignUp: validates, persists a fresh account, authenticates
//   - SignIn: matches the stored account, authenticates
//   - SignOut: unconditionally de-authenticates, keeps the stored account
//
// All mutating operations run under a single writer; the cached user is
// reloaded from the store on every one of them.
//
// # Subscriptions
//
// Subscribe registers a listener and replays the current state to it
// synchronously before anything else ("replay on join"). Every transition is
// then delivered to all listeners in subscription order on the goroutine that
// triggered it: no batching, no debouncing, no dropped notifications. A
// panicking listener is isolated and logged; the remaining listeners are
// still notified.
//
// # Validation
//
// SignUp enforces the account rules: a Gmail address, a password of at least
// six characters with an uppercase letter, a lowercase letter and a digit,
// and a username of at least three characters. Failures surface as
// *ValidationError naming the violated rule. Domain outcomes surface as
// ErrUserExists and ErrInvalidCredentials; failed operations never transition
// state or notify subscribers.
package session
