package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))

	hc := NewHealthCheck(mock)
	assert.NoError(t, hc.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck_PingFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pingErr := errors.New("connection reset")
	mock.ExpectExec("SELECT 1").WillReturnError(pingErr)

	hc := NewHealthCheck(mock)
	assert.ErrorIs(t, hc.Ping(context.Background()), pingErr)
}

func TestHealthCheck_Name(t *testing.T) {
	assert.Equal(t, "postgresql", NewHealthCheck(nil).Name())
}
