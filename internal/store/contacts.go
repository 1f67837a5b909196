// ABOUTME: Contact collection wrappers: save, list, username lookup, delete
// ABOUTME: Deleting a contact never cascades to its messages

package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// SaveContact inserts or replaces a contact record.
func (d *DB) SaveContact(ctx context.Context, c *Contact) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding contact: %w", err)
	}

	return d.WithTx(ctx, []string{CollectionContacts}, ReadWrite, func(tx *Tx) error {
		col, err := tx.Collection(CollectionContacts)
		if err != nil {
			return err
		}
		return col.Put(ctx, c.ID, data, map[string]string{"username": c.Username})
	})
}

// GetContact returns a single contact by id, or ErrNotFound.
func (d *DB) GetContact(ctx context.Context, id string) (*Contact, error) {
	var contact *Contact
	err := d.WithTx(ctx, []string{CollectionContacts}, ReadOnly, func(tx *Tx) error {
		col, err := tx.Collection(CollectionContacts)
		if err != nil {
			return err
		}
		data, err := col.Get(ctx, id)
		if err != nil {
			return err
		}

		var c Contact
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("decoding contact: %w", err)
		}
		contact = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// GetContacts returns every contact, ordered by primary key.
func (d *DB) GetContacts(ctx context.Context) ([]*Contact, error) {
	var contacts []*Contact
	err := d.WithTx(ctx, []string{CollectionContacts}, ReadOnly, func(tx *Tx) error {
		col, err := tx.Collection(CollectionContacts)
		if err != nil {
			return err
		}
		records, err := col.GetAll(ctx)
		if err != nil {
			return err
		}
		contacts, err = decodeContacts(records)
		return err
	})
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// ContactsByUsername returns every contact whose username equals username,
// via the non-unique username index. Empty slice when none match.
func (d *DB) ContactsByUsername(ctx context.Context, username string) ([]*Contact, error) {
	var contacts []*Contact
	err := d.WithTx(ctx, []string{CollectionContacts}, ReadOnly, func(tx *Tx) error {
		col, err := tx.Collection(CollectionContacts)
		if err != nil {
			return err
		}
		records, err := col.LookupByIndex(ctx, "username", username)
		if err != nil {
			return err
		}
		contacts, err = decodeContacts(records)
		return err
	})
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// DeleteContact removes the contact record. The contact's messages are kept;
// history outlives the address book entry. Deleting an absent id is a no-op.
func (d *DB) DeleteContact(ctx context.Context, id string) error {
	return d.WithTx(ctx, []string{CollectionContacts}, ReadWrite, func(tx *Tx) error {
		col, err := tx.Collection(CollectionContacts)
		if err != nil {
			return err
		}
		return col.Delete(ctx, id)
	})
}

func decodeContacts(records [][]byte) ([]*Contact, error) {
	contacts := make([]*Contact, 0, len(records))
	for _, data := range records {
		var c Contact
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decoding contact: %w", err)
		}
		contacts = append(contacts, &c)
	}
	return contacts, nil
}
