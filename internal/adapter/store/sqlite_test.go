package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/berfenger/kwb2mqtt/internal/core/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteSeedStoreRoundTrip(t *testing.T) {

	require := require.New(t)
	assert := assert.New(t)

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(err)
	defer db.Close()

	s := NewSQLiteSeedStore(db, nil)
	ctx := context.Background()

	_, found, err := s.Load(ctx, "kwb")
	require.NoError(err)
	assert.False(found)

	ts := time.UnixMilli(1700000000123)
	seed := domain.Seed{Timestamp: ts, BoilerRunTime: 3600, BoilerEnergy: 123.45, PelletConsumption: 25.7}
	require.NoError(s.Save(ctx, "kwb", seed))

	loaded, found, err := s.Load(ctx, "kwb")
	require.NoError(err)
	assert.True(found)
	assert.True(ts.Equal(loaded.Timestamp))
	assert.Equal(3600.0, loaded.BoilerRunTime)
	assert.Equal(123.45, loaded.BoilerEnergy)
	assert.Equal(25.7, loaded.PelletConsumption)

	// upsert keeps a single row per heater
	seed.BoilerEnergy = 130
	require.NoError(s.Save(ctx, "kwb", seed))
	loaded, _, err = s.Load(ctx, "kwb")
	require.NoError(err)
	assert.Equal(130.0, loaded.BoilerEnergy)

	var rows int
	require.NoError(db.QueryRow("SELECT COUNT(*) FROM heater_state").Scan(&rows))
	assert.Equal(1, rows)

	_, found, err = s.Load(ctx, "other")
	require.NoError(err)
	assert.False(found)
}

func TestSQLiteSeedStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteSeedStore(db, nil).Save(context.Background(), "kwb", domain.Seed{BoilerEnergy: 42}))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	seed, found, err := NewSQLiteSeedStore(db, nil).Load(context.Background(), "kwb")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 42.0, seed.BoilerEnergy)
	assert.True(t, seed.Timestamp.IsZero())
}

func TestSQLiteSeedStoreLoadError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM heater_state WHERE unique_id=?")).
		WithArgs("kwb").
		WillReturnError(errors.New("disk I/O error"))

	_, found, err := NewSQLiteSeedStore(db, nil).Load(context.Background(), "kwb")
	assert.Error(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteSeedStoreSaveArgs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.UnixMilli(1700000000000)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO heater_state")).
		WithArgs("kwb", ts.UnixMilli(), 10.0, 20.0, 4.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = NewSQLiteSeedStore(db, nil).Save(context.Background(), "kwb", domain.Seed{
		Timestamp: ts, BoilerRunTime: 10, BoilerEnergy: 20, PelletConsumption: 4,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteSeedStoreSaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO heater_state")).WillReturnError(errors.New("readonly database"))

	err = NewSQLiteSeedStore(db, nil).Save(context.Background(), "kwb", domain.Seed{})
	assert.ErrorContains(t, err, "readonly database")
}

func TestMemorySeedStore(t *testing.T) {
	s := NewMemorySeedStore()
	ctx := context.Background()

	_, found, err := s.Load(ctx, "kwb")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Save(ctx, "kwb", domain.Seed{BoilerEnergy: 1}))
	seed, found, _ := s.Load(ctx, "kwb")
	assert.True(t, found)
	assert.Equal(t, 1.0, seed.BoilerEnergy)

	s.SetLoadError(errors.New("boom"))
	_, _, err = s.Load(ctx, "kwb")
	assert.Error(t, err)
}
