// Package contacts manages the local user's address book on top of the
// contacts collection. Every contact gets a random safety number at creation
// (four hyphen-joined groups of four characters from [A-Z0-9]) for the
// out-of-band verification flow; verification only ever moves from false to
// true. Removing a contact does not remove its message history.
package contacts
