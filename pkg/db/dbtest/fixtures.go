package dbtest

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
)

// SeedAsset inserts an asset in the given status. A non-nil holder also gets an open
// assignment row so the asset starts out consistent.
func SeedAsset(t *testing.T, db *gorm.DB, status enums.AssetStatus, holder *uuid.UUID) *models.Asset {
	t.Helper()
	asset := &models.Asset{
		Name:          "Laptop " + uuid.NewString()[:8],
		Status:        status,
		CurrentUserID: holder,
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("seed asset: %v", err)
	}
	if holder != nil {
		assignment := &models.AssetAssignment{
			AssetID:    asset.ID,
			UserID:     *holder,
			AssignedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			Remarks:    "seeded",
		}
		if err := db.Create(assignment).Error; err != nil {
			t.Fatalf("seed assignment: %v", err)
		}
	}
	return asset
}

// SeedPurchaseOrder inserts a purchase order with the given number.
func SeedPurchaseOrder(t *testing.T, db *gorm.DB, number string) *models.PurchaseOrder {
	t.Helper()
	po := &models.PurchaseOrder{
		PoNumber:        number,
		AcquisitionType: enums.AcquisitionPurchase,
		TotalCost:       decimal.NewFromInt(1200),
		Currency:        enums.CurrencyUSD,
	}
	if err := db.Create(po).Error; err != nil {
		t.Fatalf("seed purchase order: %v", err)
	}
	return po
}

// Clock returns a deterministic clock that advances one second per call.
func Clock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start.Add(-time.Second)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}
