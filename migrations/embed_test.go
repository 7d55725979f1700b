package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFS_ContainsGooseMigrations(t *testing.T) {
	t.Parallel()

	files, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		b, err := fs.ReadFile(FS, f)
		require.NoError(t, err)
		body := string(b)
		require.Contains(t, body, "-- +goose Up", f)
		require.Contains(t, body, "-- +goose Down", f)
	}
}

func TestInit_EnforcesChainAndConversationUniqueness(t *testing.T) {
	t.Parallel()

	b, err := fs.ReadFile(FS, "00001_init.sql")
	require.NoError(t, err)
	body := string(b)

	for _, want := range []string{
		"offers_parent_uq",
		"conversations_offer_uq",
		"conversations_direct_uq",
		"UNIQUE (offer_id, user_id)",
		"ON DELETE RESTRICT",
	} {
		require.True(t, strings.Contains(body, want), "missing %q", want)
	}
}
