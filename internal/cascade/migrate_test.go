package cascade

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/internal/assets"
	"github.com/angelmondragon/assettrack-backend/internal/purchaseorders"
	"github.com/angelmondragon/assettrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
)

func linkAssets(t *testing.T, conn *gorm.DB, number string, count int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		asset := dbtest.SeedAsset(t, conn, enums.AssetStatusInStock, nil)
		require.NoError(t, conn.Model(&models.Asset{}).Where("id = ?", asset.ID).Update("po_number", number).Error)
		ids = append(ids, asset.ID)
	}
	return ids
}

func countOnNumber(t *testing.T, conn *gorm.DB, number string) int64 {
	t.Helper()
	total, err := assets.NewRepository(conn).CountByPoNumber(context.Background(), number)
	require.NoError(t, err)
	return total
}

func TestMigratePoNumberRepointsAssets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := uuid.New()
	po := dbtest.SeedPurchaseOrder(t, f.conn, "PO-2023-17")
	ids := linkAssets(t, f.conn, "PO-2023-17", 5)
	linkAssets(t, f.conn, "PO-OTHER", 1)

	result, err := f.svc.MigratePoNumber(ctx, MigratePoNumberInput{OldNumber: "po-2023-17", NewNumber: " PO-2024-01 ", ActorUserID: &actor})
	require.NoError(t, err)
	assert.Equal(t, 5, result.AssetsUpdated)
	assert.False(t, result.Resumed)
	assert.Equal(t, po.ID, result.PurchaseOrder.ID)
	assert.Equal(t, "PO-2024-01", result.PurchaseOrder.PoNumber)

	assert.Zero(t, countOnNumber(t, f.conn, "PO-2023-17"))
	assert.EqualValues(t, 5, countOnNumber(t, f.conn, "PO-2024-01"))
	assert.EqualValues(t, 1, countOnNumber(t, f.conn, "PO-OTHER"))

	stored := f.asset(t, ids[0])
	assert.Equal(t, 1, stored.Version, "po linkage does not bump the concurrency token")

	renamed, err := purchaseorders.NewRepository(f.conn).FindByNumber(ctx, "PO-2024-01")
	require.NoError(t, err)
	assert.Equal(t, po.ID, renamed.ID)

	ledger, err := purchaseorders.NewRepository(f.conn).FindMigration(ctx, "PO-2023-17", "PO-2024-01")
	require.NoError(t, err)
	assert.Equal(t, 5, ledger.AssetsUpdated)
	assert.NotNil(t, ledger.CompletedAt)
	assert.Equal(t, &actor, ledger.ActorUserID)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventPoNumberMigrated).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestMigratePoNumberRerunReportsAlreadyMigrated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.SeedPurchaseOrder(t, f.conn, "PO-A")
	linkAssets(t, f.conn, "PO-A", 3)

	_, err := f.svc.MigratePoNumber(ctx, MigratePoNumberInput{OldNumber: "PO-A", NewNumber: "PO-B"})
	require.NoError(t, err)

	_, err = f.svc.MigratePoNumber(ctx, MigratePoNumberInput{OldNumber: "PO-A", NewNumber: "PO-B"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyMigrated), "got %v", err)
	assert.EqualValues(t, 3, countOnNumber(t, f.conn, "PO-B"))
}

func TestMigratePoNumberResumesPartialRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.SeedPurchaseOrder(t, f.conn, "PO-A")
	linkAssets(t, f.conn, "PO-A", 2)

	_, err := f.svc.MigratePoNumber(ctx, MigratePoNumberInput{OldNumber: "PO-A", NewNumber: "PO-B"})
	require.NoError(t, err)

	// Assets still pointing at the old number, as left behind by an interrupted run.
	linkAssets(t, f.conn, "PO-A", 2)

	result, err := f.svc.MigratePoNumber(ctx, MigratePoNumberInput{OldNumber: "PO-A", NewNumber: "PO-B"})
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	assert.Equal(t, 2, result.AssetsUpdated)
	assert.Zero(t, countOnNumber(t, f.conn, "PO-A"))
	assert.EqualValues(t, 4, countOnNumber(t, f.conn, "PO-B"))

	ledger, err := purchaseorders.NewRepository(f.conn).FindMigration(ctx, "PO-A", "PO-B")
	require.NoError(t, err)
	assert.Equal(t, 4, ledger.AssetsUpdated)
}

func TestMigratePoNumberRejections(t *testing.T) {
	cases := []struct {
		name string
		seed []string
		old  string
		new  string
		code pkgerrors.Code
	}{
		{name: "same number", seed: []string{"PO-1"}, old: "PO-1", new: "po-1", code: pkgerrors.CodeSameNumber},
		{name: "empty number", seed: []string{"PO-1"}, old: "PO-1", new: "  ", code: pkgerrors.CodeValidation},
		{name: "unknown old number", seed: []string{"PO-1"}, old: "PO-9", new: "PO-10", code: pkgerrors.CodeNotFound},
		{name: "new number taken", seed: []string{"PO-1", "PO-2"}, old: "PO-1", new: "po-2", code: pkgerrors.CodeConflict},
		{name: "new number exists without ledger", seed: []string{"PO-2"}, old: "PO-1", new: "PO-2", code: pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			for _, number := range tc.seed {
				dbtest.SeedPurchaseOrder(t, f.conn, number)
			}
			linkAssets(t, f.conn, "PO-1", 2)

			_, err := f.svc.MigratePoNumber(context.Background(), MigratePoNumberInput{OldNumber: tc.old, NewNumber: tc.new})
			require.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
			assert.EqualValues(t, 2, countOnNumber(t, f.conn, "PO-1"), "nothing may be written on rejection")
		})
	}
}

// lateClaimRepo hides one number from lookups, as if another request created it after
// the migration read its snapshot.
type lateClaimRepo struct {
	purchaseorders.Repository
	hidden string
}

func (r lateClaimRepo) WithTx(tx *gorm.DB) purchaseorders.Repository {
	return lateClaimRepo{Repository: r.Repository.WithTx(tx), hidden: r.hidden}
}

func (r lateClaimRepo) FindByNumber(ctx context.Context, number string) (*models.PurchaseOrder, error) {
	if strings.EqualFold(number, r.hidden) {
		return nil, purchaseorders.ErrNotFound
	}
	return r.Repository.FindByNumber(ctx, number)
}

func TestMigratePoNumberLateClaimIsConflict(t *testing.T) {
	f := newFixture(t, func(p *ServiceParams) {
		p.PurchaseOrderRepo = lateClaimRepo{Repository: p.PurchaseOrderRepo, hidden: "PO-2024-099"}
	})
	dbtest.SeedPurchaseOrder(t, f.conn, "PO-2024-001")
	dbtest.SeedPurchaseOrder(t, f.conn, "PO-2024-099")
	linkAssets(t, f.conn, "PO-2024-001", 2)

	_, err := f.svc.MigratePoNumber(context.Background(), MigratePoNumberInput{OldNumber: "PO-2024-001", NewNumber: "po-2024-099"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	assert.EqualValues(t, 2, countOnNumber(t, f.conn, "PO-2024-001"), "repoint must roll back with the rename")
	assert.Zero(t, countOnNumber(t, f.conn, "po-2024-099"))
}
