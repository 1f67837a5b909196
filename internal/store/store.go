// ABOUTME: Data types and sentinel errors for qchat persistence
// ABOUTME: Defines User, Contact, Message, Settings and the collection schema constants

package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConstraint is returned when a write would break a unique index.
var ErrConstraint = errors.New("constraint violation")

// ErrStorageUnavailable is returned when the underlying database cannot be
// opened or written.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrUnknownCollection is returned when a transaction touches a collection it
// did not declare, or one that is not part of the schema.
var ErrUnknownCollection = errors.New("unknown collection")

// Collection names. These four make up the durable schema; data written by a
// previous version of the app lives under the same names.
const (
	CollectionUsers    = "users"
	CollectionContacts = "contacts"
	CollectionMessages = "messages"
	CollectionSettings = "settings"
)

// SettingsKey is the fixed primary key of the settings singleton.
const SettingsKey = "main"

// User is the single local account on this device.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	// PasswordHash is a bcrypt hash set at sign-up. Records written by the
	// original app carry no hash; sign-in treats those as email-only.
	PasswordHash string `json:"passwordHash,omitempty"`
}

// Contact is a peer the local user can message. Verified is monotonic: once
// true it is never unset.
type Contact struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Avatar       string    `json:"avatar,omitempty"`
	Verified     bool      `json:"verified"`
	SafetyNumber string    `json:"safetyNumber"`
	AddedAt      time.Time `json:"addedAt"`
}

// Message is a single chat message. ContactID is not a hard foreign key:
// deleting a contact leaves its messages behind.
type Message struct {
	ID         string    `json:"id"`
	ContactID  string    `json:"contactId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	IsOutgoing bool      `json:"isOutgoing"`
	Encrypted  bool      `json:"encrypted"`
}

// Settings is the device settings singleton, keyed by SettingsKey. Every
// mutation refreshes LastUpdated.
type Settings struct {
	ID             string    `json:"id"`
	HybridMode     bool      `json:"hybridMode"`
	DeviceVerified bool      `json:"deviceVerified"`
	LastUpdated    time.Time `json:"lastUpdated"`
}
