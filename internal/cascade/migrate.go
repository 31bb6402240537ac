package cascade

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/internal/purchaseorders"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox/payloads"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// MigratePoNumberInput renames a purchase order and repoints its assets.
type MigratePoNumberInput struct {
	OldNumber   string
	NewNumber   string
	ActorUserID *uuid.UUID
}

// MigrationResult reports how many assets were repointed. Resumed is set when a
// previous run had already renamed the purchase order.
type MigrationResult struct {
	AssetsUpdated int                   `json:"assets_updated"`
	PurchaseOrder *models.PurchaseOrder `json:"purchase_order"`
	Resumed       bool                  `json:"resumed"`
}

func (s *service) MigratePoNumber(ctx context.Context, input MigratePoNumberInput) (*MigrationResult, error) {
	oldNumber := strings.TrimSpace(input.OldNumber)
	newNumber := strings.TrimSpace(input.NewNumber)
	if oldNumber == "" || newNumber == "" {
		return nil, s.migrationFailed(ctx, pkgerrors.New(pkgerrors.CodeValidation, "old and new purchase order numbers are required"))
	}
	if strings.EqualFold(oldNumber, newNumber) {
		return nil, s.migrationFailed(ctx, pkgerrors.New(pkgerrors.CodeSameNumber, "old and new purchase order numbers are the same").
			WithDetails(map[string]any{"po_number": oldNumber}))
	}

	now := s.now().UTC()
	result := &MigrationResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		poRepo := s.poRepo.WithTx(tx)
		assetRepo := s.assetRepo.WithTx(tx)

		oldPO, err := findPurchaseOrder(ctx, poRepo, oldNumber)
		if err != nil {
			return err
		}
		newPO, err := findPurchaseOrder(ctx, poRepo, newNumber)
		if err != nil {
			return err
		}
		ledger, err := findLedger(ctx, poRepo, oldNumber, newNumber)
		if err != nil {
			return err
		}

		var po *models.PurchaseOrder
		switch {
		case oldPO != nil && newPO != nil:
			return pkgerrors.New(pkgerrors.CodeConflict, "new purchase order number is already in use").
				WithDetails(map[string]any{"po_number": newPO.PoNumber})
		case oldPO != nil:
			po = oldPO
		case newPO != nil && ledger != nil && ledger.PurchaseOrderID == newPO.ID:
			po = newPO
			result.Resumed = true
		default:
			return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found").
				WithDetails(map[string]any{"po_number": oldNumber})
		}

		if result.Resumed {
			remaining, err := assetRepo.CountByPoNumber(ctx, oldNumber)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count assets on old number")
			}
			if remaining == 0 {
				return pkgerrors.New(pkgerrors.CodeAlreadyMigrated, "purchase order number already migrated").
					WithDetails(map[string]any{
						"old_po_number":  oldNumber,
						"new_po_number":  po.PoNumber,
						"assets_updated": ledger.AssetsUpdated,
					})
			}
			newNumber = po.PoNumber
		}

		updated, err := assetRepo.RepointPoNumber(ctx, oldNumber, newNumber, s.batchSize)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "repoint assets")
		}
		if !result.Resumed {
			if err := poRepo.Rename(ctx, po.ID, newNumber, now); err != nil {
				// Another request claimed the new number after the lookup above.
				if db.IsUniqueViolation(err, purchaseorders.UniqueNumberIndex) {
					return pkgerrors.New(pkgerrors.CodeConflict, "new purchase order number is already in use").
						WithDetails(map[string]any{"po_number": newNumber})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rename purchase order")
			}
			oldNumber = po.PoNumber
			po.PoNumber = newNumber
			po.UpdatedAt = now
		}
		result.AssetsUpdated = int(updated)
		result.PurchaseOrder = po

		if ledger != nil && !result.Resumed {
			ledger.AssetsUpdated = 0
		}
		if ledger == nil {
			ledger = &models.PoNumberMigration{
				OldPoNumber:     oldNumber,
				NewPoNumber:     newNumber,
				PurchaseOrderID: po.ID,
				ActorUserID:     input.ActorUserID,
				StartedAt:       now,
			}
		}
		ledger.AssetsUpdated += result.AssetsUpdated
		ledger.CompletedAt = &now
		if err := poRepo.SaveMigration(ctx, ledger); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record purchase order migration")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPoNumberMigrated,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   po.ID,
			Actor:         outbox.ActorFor(input.ActorUserID),
			OccurredAt:    now,
			Data: payloads.PoNumberMigratedEvent{
				PurchaseOrderID: po.ID,
				OldPoNumber:     oldNumber,
				NewPoNumber:     newNumber,
				AssetsUpdated:   result.AssetsUpdated,
			},
		})
	})
	if err != nil {
		return nil, s.migrationFailed(ctx, err)
	}

	s.metrics.ObserveMigration(result.AssetsUpdated)
	logCtx := s.logg.WithFields(s.logg.WithOperation(ctx, opMigratePoNumber), map[string]any{
		"purchase_order_id": result.PurchaseOrder.ID,
		"new_po_number":     result.PurchaseOrder.PoNumber,
		"assets_updated":    result.AssetsUpdated,
		"resumed":           result.Resumed,
	})
	s.logg.Info(logCtx, "purchase order number migrated")
	return result, nil
}

func (s *service) migrationFailed(ctx context.Context, err error) error {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	s.metrics.IncError(opMigratePoNumber, string(code))
	if code == pkgerrors.CodeDependency || code == pkgerrors.CodeInternal {
		logCtx := s.logg.WithFields(s.logg.WithOperation(ctx, opMigratePoNumber), map[string]any{
			"error_dump": pkgerrors.Dump(err),
		})
		s.logg.Error(logCtx, "purchase order migration failed", err)
	}
	return err
}

func findPurchaseOrder(ctx context.Context, repo purchaseorders.Repository, number string) (*models.PurchaseOrder, error) {
	po, err := repo.FindByNumber(ctx, number)
	if errors.Is(err, purchaseorders.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
	}
	return po, nil
}

func findLedger(ctx context.Context, repo purchaseorders.Repository, oldNumber, newNumber string) (*models.PoNumberMigration, error) {
	ledger, err := repo.FindMigration(ctx, oldNumber, newNumber)
	if errors.Is(err, purchaseorders.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load migration ledger")
	}
	return ledger, nil
}
