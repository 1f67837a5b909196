// ABOUTME: User collection wrappers over the generic collection primitive
// ABOUTME: Enforces the single-account model and the unique email index

package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// SaveUser inserts or replaces the user record. A different record already
// holding the same email fails with ErrConstraint.
func (d *DB) SaveUser(ctx context.Context, u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	return d.WithTx(ctx, []string{CollectionUsers}, ReadWrite, func(tx *Tx) error {
		col, err := tx.Collection(CollectionUsers)
		if err != nil {
			return err
		}
		return col.Put(ctx, u.ID, data, map[string]string{"email": u.Email})
	})
}

// GetUser returns the single local user, or ErrNotFound when no account
// exists. Should more than one record ever exist the one with the lowest
// primary key wins, so repeated calls always agree.
func (d *DB) GetUser(ctx context.Context) (*User, error) {
	var user *User
	err := d.WithTx(ctx, []string{CollectionUsers}, ReadOnly, func(tx *Tx) error {
		col, err := tx.Collection(CollectionUsers)
		if err != nil {
			return err
		}
		records, err := col.GetAll(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return ErrNotFound
		}

		// GetAll orders by primary key; the first record is the winner.
		var u User
		if err := json.Unmarshal(records[0], &u); err != nil {
			return fmt.Errorf("decoding user: %w", err)
		}
		user = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UserUpdate carries the fields UpdateUser may change. Nil fields are left
// untouched.
type UserUpdate struct {
	Username *string
	Avatar   *string
}

// UpdateUser merges upd into the stored user record in one read-modify-write
// transaction and returns the updated user. ErrNotFound when no account
// exists.
func (d *DB) UpdateUser(ctx context.Context, upd UserUpdate) (*User, error) {
	var user *User
	err := d.WithTx(ctx, []string{CollectionUsers}, ReadWrite, func(tx *Tx) error {
		col, err := tx.Collection(CollectionUsers)
		if err != nil {
			return err
		}
		records, err := col.GetAll(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return ErrNotFound
		}

		var u User
		if err := json.Unmarshal(records[0], &u); err != nil {
			return fmt.Errorf("decoding user: %w", err)
		}
		if upd.Username != nil {
			u.Username = *upd.Username
		}
		if upd.Avatar != nil {
			u.Avatar = *upd.Avatar
		}

		data, err := json.Marshal(&u)
		if err != nil {
			return fmt.Errorf("encoding user: %w", err)
		}
		if err := col.Put(ctx, u.ID, data, map[string]string{"email": u.Email}); err != nil {
			return err
		}
		user = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
