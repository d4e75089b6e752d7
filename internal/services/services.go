// Package services holds the business rules of the shop: cart ledger,
// checkout, order queries, catalog and identity.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/store"
)

// Cart events published after a committed change.
const (
	EventUpdated    = "updated"
	EventCleared    = "cleared"
	EventCheckedOut = "checked_out"
)

type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, event string) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, uuid.UUID, string) error { return nil }

func now() time.Time { return time.Now().UTC() }

// inTx runs fn in a transaction and retries once on a serialization
// failure. A second failure surfaces as a conflict.
func inTx(ctx context.Context, st store.Store, fn func(q store.Queries) error) error {
	err := st.WithinTx(ctx, fn)
	if errors.Is(err, store.ErrSerialization) {
		err = st.WithinTx(ctx, fn)
	}
	return storeErr(err)
}

// storeErr lifts errors that are not already classified into the taxonomy.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrSerialization):
		return apperr.Conflict("concurrent update, please retry", err)
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict("resource already exists", err)
	case errors.Is(err, store.ErrOutOfRange):
		return apperr.Validation("value out of range")
	default:
		return apperr.Internal(err)
	}
}

// notFound maps store.ErrNotFound to a NotFound for what, and anything
// else through storeErr.
func notFound(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(what)
	}
	return storeErr(err)
}
