package purchaseorders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/assettrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
)

func TestRepositoryFindByNumberIgnoresCase(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	seeded := dbtest.SeedPurchaseOrder(t, conn, "PO-2024-001")

	found, err := repo.FindByNumber(ctx, "po-2024-001")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	assert.Equal(t, "PO-2024-001", found.PoNumber)

	_, err = repo.FindByNumber(ctx, "PO-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryRename(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	seeded := dbtest.SeedPurchaseOrder(t, conn, "PO-OLD")

	require.NoError(t, repo.Rename(ctx, seeded.ID, "PO-NEW", time.Now().UTC()))

	found, err := repo.FindByNumber(ctx, "PO-NEW")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	_, err = repo.FindByNumber(ctx, "PO-OLD")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryMigrationLedger(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	po := dbtest.SeedPurchaseOrder(t, conn, "PO-A")

	_, err := repo.FindMigration(ctx, "PO-A", "PO-B")
	require.ErrorIs(t, err, ErrNotFound)

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	migration := &models.PoNumberMigration{
		OldPoNumber:     "PO-A",
		NewPoNumber:     "PO-B",
		PurchaseOrderID: po.ID,
		AssetsUpdated:   3,
		StartedAt:       started,
	}
	require.NoError(t, repo.SaveMigration(ctx, migration))

	found, err := repo.FindMigration(ctx, "po-a", "po-b")
	require.NoError(t, err)
	assert.Equal(t, 3, found.AssetsUpdated)
	assert.Nil(t, found.CompletedAt)

	completed := started.Add(time.Minute)
	found.AssetsUpdated = 5
	found.CompletedAt = &completed
	require.NoError(t, repo.SaveMigration(ctx, found))

	reloaded, err := repo.FindMigration(ctx, "PO-A", "PO-B")
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.AssetsUpdated)
	require.NotNil(t, reloaded.CompletedAt)
	assert.True(t, reloaded.CompletedAt.Equal(completed))
}
