package db

import (
	"net/url"
	"testing"

	"github.com/historyguide/apiserver/config"
	"github.com/stretchr/testify/require"
)

func TestDSNFromParts(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     6543,
		User:     "guide",
		Password: "p@ss word",
		DBName:   "history",
		UseSSL:   true,
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	require.Equal(t, "postgres", u.Scheme)
	require.Equal(t, "db.internal:6543", u.Host)
	require.Equal(t, "guide", u.User.Username())
	pass, _ := u.User.Password()
	require.Equal(t, "p@ss word", pass)
	require.Equal(t, "/history", u.Path)
	require.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestDSNPrefersURL(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		URL:  "postgres://u:p@example:5432/x?sslmode=disable",
		Host: "ignored",
	})
	require.Equal(t, "postgres://u:p@example:5432/x?sslmode=disable", dsn)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Contains(t, names, "000001_create_users.up.sql")
	require.Contains(t, names, "000001_create_users.down.sql")
}
