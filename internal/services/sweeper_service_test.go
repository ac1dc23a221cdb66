package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staysync/booking-backend/internal/config"
	"github.com/staysync/booking-backend/internal/database"
)

func TestSweeper_Sweep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := database.NewBookingRepository(&mockDatabase{db: db})
	sweeper := NewSweeperService(repo, config.SweeperConfig{}, testLogger())

	mock.ExpectExec("UPDATE bookings").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	completed, err := sweeper.Sweep()
	require.NoError(t, err)
	assert.Equal(t, int64(2), completed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeper_DisabledDoesNotSchedule(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := database.NewBookingRepository(&mockDatabase{db: db})
	sweeper := NewSweeperService(repo, config.SweeperConfig{Enabled: false}, testLogger())

	require.NoError(t, sweeper.Start())
	sweeper.Stop()
}

func TestSweeper_BadScheduleRejected(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := database.NewBookingRepository(&mockDatabase{db: db})
	sweeper := NewSweeperService(repo, config.SweeperConfig{Enabled: true, Schedule: "not a schedule"}, testLogger())

	assert.Error(t, sweeper.Start())
}
