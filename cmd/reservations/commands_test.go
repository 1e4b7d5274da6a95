package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()

	prev := envLookuper
	envLookuper = func() envconfig.Lookuper { return envconfig.MapLookuper(env) }
	t.Cleanup(func() { envLookuper = prev })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRoomsCommand_PrintsSeedCatalogInOrder(t *testing.T) {
	out, err := execute(t, map[string]string{
		"DATA_DIR":   t.TempDir(),
		"SEED_ROOMS": "3:4,1:2",
		"LOG_LEVEL":  "disabled",
	}, "rooms")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "ROOM")
	assert.True(t, strings.HasPrefix(lines[1], "1 "), "expected room 1 first, got %q", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "3 "), "expected room 3 second, got %q", lines[2])
}

func TestVerifyCommand_RejectsOverlappingReservations(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rooms.csv"), []byte("1,2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reservations.csv"), []byte(
		"1,1,1,2025-03-01,2025-03-05,2\n"+
			"2,1,1,2025-03-05,2025-03-06,1\n"), 0o644))

	_, err := execute(t, map[string]string{"DATA_DIR": dir, "LOG_LEVEL": "disabled"}, "verify-data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestVerifyCommand_ReportsCounts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rooms.csv"), []byte("1,2\n2,4\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reservations.csv"), []byte("5,1,2,2025-03-01,2025-03-05,3\n"), 0o644))

	out, err := execute(t, map[string]string{"DATA_DIR": dir, "LOG_LEVEL": "disabled"}, "verify-data")
	require.NoError(t, err)
	assert.Contains(t, out, "2 rooms")
	assert.Contains(t, out, "1 reservations")
	assert.Contains(t, out, "last reservation id 5")
}
