package persistence

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/servicebay/internal/domain"
)

func TestIsUUID(t *testing.T) {
	assert.True(t, isUUID("6f1c1f4e-3d4a-4c1b-9a3e-2b7c5d9e8f01"))
	assert.False(t, isUUID("r1"))
	assert.False(t, isUUID(""))
}

func TestDecodeJSONMap(t *testing.T) {
	m, err := decodeJSONMap(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = decodeJSONMap([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = decodeJSONMap([]byte(`{"license_plate":"1กก2345"}`))
	require.NoError(t, err)
	assert.Equal(t, "1กก2345", m["license_plate"])

	_, err = decodeJSONMap([]byte(`{`))
	assert.Error(t, err)
}

func TestNullStringPtr(t *testing.T) {
	assert.Nil(t, nullStringPtr(sql.NullString{}))
	assert.Equal(t, "staff1", *nullStringPtr(sql.NullString{String: "staff1", Valid: true}))
}

func TestTranslateWriteError(t *testing.T) {
	fk := &pq.Error{Code: pqForeignKeyViolation}
	assert.ErrorIs(t, translateWriteError("attach", fk), domain.ErrInvalidReference)

	other := translateWriteError("attach", errors.New("connection reset"))
	assert.NotErrorIs(t, other, domain.ErrInvalidReference)
	assert.Contains(t, other.Error(), "attach: connection reset")
}
