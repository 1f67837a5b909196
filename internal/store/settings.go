// ABOUTME: Settings singleton wrappers keyed by the fixed "main" identifier
// ABOUTME: At most one settings record ever exists

package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// SaveSettings inserts or replaces the settings singleton. The record is
// always stored under SettingsKey regardless of the ID the caller set, so a
// second record can never appear.
func (d *DB) SaveSettings(ctx context.Context, s *Settings) error {
	s.ID = SettingsKey
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	return d.WithTx(ctx, []string{CollectionSettings}, ReadWrite, func(tx *Tx) error {
		col, err := tx.Collection(CollectionSettings)
		if err != nil {
			return err
		}
		return col.Put(ctx, SettingsKey, data, nil)
	})
}

// GetSettings returns the settings singleton, or ErrNotFound when it has
// never been saved.
func (d *DB) GetSettings(ctx context.Context) (*Settings, error) {
	var settings *Settings
	err := d.WithTx(ctx, []string{CollectionSettings}, ReadOnly, func(tx *Tx) error {
		col, err := tx.Collection(CollectionSettings)
		if err != nil {
			return err
		}
		data, err := col.Get(ctx, SettingsKey)
		if err != nil {
			return err
		}

		var s Settings
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding settings: %w", err)
		}
		settings = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}
