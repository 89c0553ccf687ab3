package database

import (
	"testing"

	"neotrade/src/model"

	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := Open(Config{
		Driver:          "sqlite",
		DatabaseURLMain: "file:db_main_test?mode=memory&cache=shared",
		GormLogLevel:    1,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
	})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.True(t, db.Migrator().HasTable(&model.Order{}))
	require.True(t, db.Migrator().HasTable(&model.User{}))
	require.True(t, db.Migrator().HasTable(&model.Exception{}))
	require.True(t, db.Migrator().HasIndex(&model.Order{}, "idx_orders_client_order"))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}
