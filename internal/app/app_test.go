package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/infrastructure/config"
)

func csvConfig(dir string) *config.Config {
	return &config.Config{
		Port:            "0",
		Env:             "development",
		JWTSecret:       "test-secret",
		TokenTTL:        time.Hour,
		Storage:         config.StorageConfig{Driver: "csv", DataDir: dir, SeedRooms: "1:2,2:4"},
		Audit:           config.AuditConfig{Workers: 1},
		ShutdownTimeout: time.Second,
	}
}

func TestNew_SeedsEmptyCatalogAndPersistsIt(t *testing.T) {
	dir := t.TempDir()

	a, err := New(context.Background(), csvConfig(dir), zerolog.Nop(), WithMetricsRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { a.dispatcher.Close() })

	data, err := os.ReadFile(filepath.Join(dir, "rooms.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1,2\n2,4\n", string(data))

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_RejectsCorruptData(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rooms.csv"), []byte("1,2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reservations.csv"),
		[]byte("1,1,1,2025-03-01,2025-03-03,1\n2,1,1,2025-03-03,2025-03-04,1\n"), 0o644))

	_, err := New(context.Background(), csvConfig(dir), zerolog.Nop(), WithMetricsRegisterer(prometheus.NewRegistry()))
	assert.ErrorIs(t, err, domain.ErrCorruptData)
}

func TestLoadDataset_KeepsPersistedRooms(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rooms.csv"), []byte("7,3\n"), 0o644))

	backend, err := OpenStorage(context.Background(), csvConfig(dir))
	require.NoError(t, err)

	ds, seeded, err := LoadDataset(context.Background(), backend.Storage, "1:2")
	require.NoError(t, err)
	assert.False(t, seeded)
	require.Len(t, ds.Rooms, 1)
	assert.Equal(t, domain.RoomID(7), ds.Rooms[0].ID)
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	cfg := csvConfig(t.TempDir())
	cfg.Storage.Driver = "sqlite"

	_, err := OpenStorage(context.Background(), cfg)
	assert.Error(t, err)
}
