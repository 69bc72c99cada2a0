package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	// GORM pings during initialization
	mock.ExpectPing()

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return db, mock
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthMonitor_CheckFlipsFlag(t *testing.T) {
	db, mock := setupMockDB(t)
	monitor := NewHealthMonitor(db, time.Minute, quietLogger())

	assert.True(t, monitor.IsHealthy(), "assumed healthy before the first check")
	assert.True(t, monitor.LastCheck().IsZero())

	mock.ExpectExec("SELECT 1").WillReturnError(errors.New("connection refused"))
	assert.False(t, monitor.Check(context.Background()))
	assert.False(t, monitor.IsHealthy())
	assert.Contains(t, monitor.LastError(), "connection refused")

	mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, monitor.Check(context.Background()))
	assert.True(t, monitor.IsHealthy())
	assert.Empty(t, monitor.LastError())
	assert.False(t, monitor.LastCheck().IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthMonitor_StartChecksImmediately(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectExec("SELECT 1").WillReturnError(errors.New("server closed the connection unexpectedly"))

	monitor := NewHealthMonitor(db, time.Hour, quietLogger())
	monitor.Start()
	defer monitor.Stop()

	assert.Eventually(t, func() bool { return !monitor.IsHealthy() }, time.Second, 10*time.Millisecond)
	assert.True(t, monitor.IsRunning())
}

func TestHealthMonitor_StartStopIdempotent(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.MatchExpectationsInOrder(false)
	mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))

	monitor := NewHealthMonitor(db, time.Hour, quietLogger())
	monitor.Start()
	monitor.Start()
	monitor.Stop()
	monitor.Stop()

	assert.False(t, monitor.IsRunning())
}

func TestNewHealthMonitor_DefaultsInterval(t *testing.T) {
	db, _ := setupMockDB(t)
	monitor := NewHealthMonitor(db, 0, nil)
	assert.Equal(t, DefaultHealthCheckInterval, monitor.interval)
}
