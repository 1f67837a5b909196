// ABOUTME: Message collection wrappers with per-contact chronological listing
// ABOUTME: Sorts by timestamp ascending with id tie-break for determinism

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// SaveMessage inserts or replaces a message record and maintains the
// contactId and timestamp indexes in the same write.
func (d *DB) SaveMessage(ctx context.Context, m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	return d.WithTx(ctx, []string{CollectionMessages}, ReadWrite, func(tx *Tx) error {
		col, err := tx.Collection(CollectionMessages)
		if err != nil {
			return err
		}
		return col.Put(ctx, m.ID, data, map[string]string{
			"contactId": m.ContactID,
			"timestamp": m.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	})
}

// GetMessagesFor returns every message stored under contactID, sorted by
// ascending timestamp. Equal timestamps order by message id, so repeated
// calls always return the same sequence. Messages survive the deletion of
// their contact.
func (d *DB) GetMessagesFor(ctx context.Context, contactID string) ([]*Message, error) {
	var messages []*Message
	err := d.WithTx(ctx, []string{CollectionMessages}, ReadOnly, func(tx *Tx) error {
		col, err := tx.Collection(CollectionMessages)
		if err != nil {
			return err
		}
		records, err := col.LookupByIndex(ctx, "contactId", contactID)
		if err != nil {
			return err
		}

		messages = make([]*Message, 0, len(records))
		for _, data := range records {
			var m Message
			if err := json.Unmarshal(data, &m); err != nil {
				return fmt.Errorf("decoding message: %w", err)
			}
			messages = append(messages, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(messages, func(i, j int) bool {
		if messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}
