package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"shop_back_end/internal/store"
)

func TestMapErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, store.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), store.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}, store.ErrConflict},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, store.ErrNotFound},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, store.ErrSerialization},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, store.ErrSerialization},
		{"numeric overflow", &pgconn.PgError{Code: "22003"}, store.ErrOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapErr(tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("mapErr(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}

	other := errors.New("connection refused")
	if got := mapErr(other); got != other {
		t.Fatalf("unknown errors must pass through, got %v", got)
	}
	if mapErr(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestSchemaDeclaresCoreConstraints(t *testing.T) {
	for _, want := range []string{
		"user_id     UUID NOT NULL UNIQUE",
		"UNIQUE (cart_id, product_id)",
		"CHECK (quantity > 0)",
		"unit_price  NUMERIC(12, 2) NOT NULL",
	} {
		if !strings.Contains(schema, want) {
			t.Fatalf("schema is missing %q", want)
		}
	}
}
