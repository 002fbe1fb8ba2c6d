package teams

import (
	"context"
	"testing"

	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	app := NewApp(NewRepository(fs))
	require.NoError(t, app.SaveTeam(context.Background(), models.Team{
		ID:             "t1",
		Name:           "Chennai",
		Sport:          "cricket",
		PurseRemaining: 50,
		TotalPurse:     100,
	}))
	return app
}

func TestRecordPurchase(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)

	team, err := app.RecordPurchase(ctx, "cricket", "t1", "p1", 12.35)
	require.NoError(t, err)
	assert.Equal(t, 37.65, team.PurseRemaining)
	assert.Equal(t, []string{"p1"}, team.PlayerIDs)

	stored, err := app.GetTeam(ctx, "cricket", "t1")
	require.NoError(t, err)
	assert.Equal(t, 37.65, stored.PurseRemaining)
	assert.True(t, stored.HasPlayer("p1"))
}

func TestRecordPurchaseRejectsOverspend(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)

	_, err := app.RecordPurchase(ctx, "cricket", "t1", "p1", 50.25)
	assert.ErrorIs(t, err, ErrInsufficientPurse)

	stored, err := app.GetTeam(ctx, "cricket", "t1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, stored.PurseRemaining)
	assert.Empty(t, stored.PlayerIDs)
}

func TestRecordPurchaseRejectsDuplicatePlayer(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)

	_, err := app.RecordPurchase(ctx, "cricket", "t1", "p1", 1)
	require.NoError(t, err)
	_, err = app.RecordPurchase(ctx, "cricket", "t1", "p1", 1)
	assert.Error(t, err)
}

func TestRevertPurchase(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)

	_, err := app.RecordPurchase(ctx, "cricket", "t1", "p1", 10.5)
	require.NoError(t, err)
	require.NoError(t, app.RevertPurchase(ctx, "cricket", "t1", "p1", 10.5))

	stored, err := app.GetTeam(ctx, "cricket", "t1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, stored.PurseRemaining)
	assert.Empty(t, stored.PlayerIDs)

	// reverting twice is a no-op
	require.NoError(t, app.RevertPurchase(ctx, "cricket", "t1", "p1", 10.5))
	stored, err = app.GetTeam(ctx, "cricket", "t1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, stored.PurseRemaining)
}

func TestGetTeamNotFound(t *testing.T) {
	app := newTestApp(t)

	_, err := app.GetTeam(context.Background(), "cricket", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveTeamValidation(t *testing.T) {
	app := newTestApp(t)

	err := app.SaveTeam(context.Background(), models.Team{ID: "t2", Name: "X", Sport: "cricket", PurseRemaining: 200, TotalPurse: 100})
	assert.Error(t, err)
}
