package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "edunext",
		Password: "secret",
		Name:     "edunextdb",
	})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=edunext dbname=edunextdb password=secret sslmode=disable", dsn)
}

func TestBuildPostgresDSNRequiresUser(t *testing.T) {
	_, err := buildPostgresDSN(Config{Name: "edunextdb"})
	require.Error(t, err)
}

func TestBuildPostgresDSNPassthrough(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "host=custom"})
	require.NoError(t, err)
	require.Equal(t, "host=custom", dsn)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User: "root",
		Name: "edunextdb",
	})
	require.NoError(t, err)
	require.Equal(t, "root@tcp(127.0.0.1:3306)/edunextdb?charset=utf8mb4&loc=Local&parseTime=True", dsn)
}

func TestBuildMySQLDSNWithPassword(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "root",
		Password: "secret",
		Host:     "db.internal",
		Port:     3307,
		Name:     "edunextdb",
	})
	require.NoError(t, err)
	require.Equal(t, "root:secret@tcp(db.internal:3307)/edunextdb?charset=utf8mb4&loc=Local&parseTime=True", dsn)
}
