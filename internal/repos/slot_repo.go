package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Slot names shared by every backend.
const (
	SlotCart         = "cart"
	SlotWishlist     = "wishlist"
	SlotToken        = "jwtToken"
	SlotRegistration = "registration"
)

var (
	// ErrSlotEmpty is returned by Get when nothing was ever written to the slot.
	ErrSlotEmpty = errors.New("slot empty")
	// ErrUnchanged is returned by an UpdateFunc to leave the slot as it is.
	ErrUnchanged = errors.New("slot unchanged")
)

// UpdateFunc maps the slot's current value (nil when empty) to the value to
// store. Returning ErrUnchanged skips the write; any other error aborts.
type UpdateFunc func(cur []byte) ([]byte, error)

// SlotStore is the durable per-session key/value storage the storefront keeps
// its client-side state in.
type SlotStore interface {
	Get(ctx context.Context, sessionID, slot string) ([]byte, error)
	Put(ctx context.Context, sessionID, slot string, value []byte) error
	Delete(ctx context.Context, sessionID, slot string) error
	// Update reads and rewrites one slot atomically, so concurrent updates
	// of the same slot never lose each other's changes.
	Update(ctx context.Context, sessionID, slot string, fn UpdateFunc) error
}

type SlotRepo struct{ db *sqlx.DB }

func NewSlotRepo(db *sqlx.DB) *SlotRepo { return &SlotRepo{db: db} }

func (r *SlotRepo) Get(ctx context.Context, sessionID, slot string) ([]byte, error) {
	var v []byte
	err := r.db.GetContext(ctx, &v, `SELECT value FROM storage_slots WHERE session_id=? AND slot=?`, sessionID, slot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Update holds the sqlite write lock from the read to the write.
func (r *SlotRepo) Update(ctx context.Context, sessionID, slot string, fn UpdateFunc) (err error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err = conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK`)
			if errors.Is(err, ErrUnchanged) {
				err = nil
			}
			return
		}
		_, err = conn.ExecContext(ctx, `COMMIT`)
	}()

	var cur []byte
	err = conn.GetContext(ctx, &cur, `SELECT value FROM storage_slots WHERE session_id=? AND slot=?`, sessionID, slot)
	if errors.Is(err, sql.ErrNoRows) {
		cur, err = nil, nil
	}
	if err != nil {
		return err
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, upsertSlot, sessionID, slot, next)
	return err
}

const upsertSlot = `
		INSERT INTO storage_slots(session_id, slot, value, created_at)
		VALUES(?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id, slot) DO UPDATE
		SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`

func (r *SlotRepo) Put(ctx context.Context, sessionID, slot string, value []byte) error {
	_, err := r.db.ExecContext(ctx, upsertSlot, sessionID, slot, value)
	return err
}

func (r *SlotRepo) Delete(ctx context.Context, sessionID, slot string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM storage_slots WHERE session_id=? AND slot=?`, sessionID, slot)
	return err
}
