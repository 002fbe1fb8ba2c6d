package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auctionhouse/go/internal/config"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/store"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teams.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"t1","name":"Chennai","sport":"cricket","purseRemaining":100,"totalPurse":100}]`), 0o644))

	teams, err := Load[models.Team](path)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Chennai", teams[0].Name)
	assert.Equal(t, 100.0, teams[0].TotalPurse)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load[models.Team](filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"t1"}`), 0o644))
	_, err = Load[models.Team](path)
	assert.Error(t, err)
}

func TestOpenFileStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.DataDir = t.TempDir()

	s, closeFn, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &store.FileStore{}, s)
}

func TestSummaryString(t *testing.T) {
	s := Summary{Total: 3, Inserted: 1, Skipped: 1, Errors: 1}
	assert.Equal(t, "3 total, 1 inserted, 1 skipped, 1 errors", s.String())
}
