package billing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolationMatchesPoolErrors(t *testing.T) {
	// Constraint violations surface from the pool wrapped, so detection has
	// to unwrap down to the pgx/v5 error type.
	err := fmt.Errorf("insert farmer bill: %w", &pgconn.PgError{Code: "23505"})
	require.True(t, isUniqueViolation(err))

	require.False(t, isUniqueViolation(&pgconn.PgError{Code: "40001"}))
	require.False(t, isUniqueViolation(errors.New("connection reset")))
	require.False(t, isUniqueViolation(nil))
}
