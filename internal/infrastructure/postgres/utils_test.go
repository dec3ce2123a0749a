package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-sectores/internal/domain"
)

func TestMapError_CodigosDePostgres(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
	}

	assert.NoError(t, mapError("op", nil))
	assert.ErrorIs(t, mapError("upsert", wrap(codeSerializationFailure)), domain.ErrConcurrentModification)
	assert.ErrorIs(t, mapError("upsert", wrap(codeDeadlockDetected)), domain.ErrConcurrentModification)
	assert.ErrorIs(t, mapError("upsert", wrap(codeCheckViolation)), domain.ErrInvalidQuantity)

	other := errors.New("conexión cerrada")
	err := mapError("listar", other)
	require.ErrorIs(t, err, other)
	assert.Contains(t, err.Error(), "listar")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: codeUniqueViolation}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: codeCheckViolation}))
	assert.True(t, isUniqueViolation(errors.New("ERROR: duplicate key (SQLSTATE 23505)")))
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	p := nullIfEmpty("A")
	require.NotNil(t, p)
	assert.Equal(t, "A", valueOrEmpty(p))
	assert.Equal(t, "", valueOrEmpty(nil))
}

func TestDatabaseURLWithIPv4_IPLiteral(t *testing.T) {
	assert.Equal(t, "postgres://u:p@127.0.0.1:5432/stock", databaseURLWithIPv4("postgres://u:p@127.0.0.1/stock"))
	assert.Equal(t, "postgres://u:p@[::1]:5432/stock", databaseURLWithIPv4("postgres://u:p@[::1]:5432/stock"))
}
