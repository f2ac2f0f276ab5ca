package database

import (
    "io/fs"
    "strings"
    "testing"

    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
    dsn := Options{User: "tix", Pass: "s3cret", Host: "db", Port: "3306", Name: "tixcode"}.DSN()
    cfg, err := mysql.ParseDSN(dsn)
    require.NoError(t, err)
    assert.Equal(t, "tix", cfg.User)
    assert.Equal(t, "s3cret", cfg.Passwd)
    assert.Equal(t, "db:3306", cfg.Addr)
    assert.Equal(t, "tixcode", cfg.DBName)
    assert.True(t, cfg.ParseTime)
}

func TestMigrationsEmbedded(t *testing.T) {
    files, err := fs.Glob(embedMigrations, "migrations/*.sql")
    require.NoError(t, err)
    require.NotEmpty(t, files)

    var all strings.Builder
    for _, f := range files {
        b, err := fs.ReadFile(embedMigrations, f)
        require.NoError(t, err)
        assert.Contains(t, string(b), "-- +goose Up", f)
        all.Write(b)
    }
    // Uniqueness guarantees the code store relies on.
    assert.Contains(t, all.String(), "UNIQUE KEY uniq_code")
    assert.Contains(t, all.String(), "UNIQUE KEY uniq_owner_event")
}
