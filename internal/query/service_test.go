package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/internal/assets"
	"github.com/angelmondragon/assettrack-backend/internal/assignments"
	"github.com/angelmondragon/assettrack-backend/internal/audit"
	"github.com/angelmondragon/assettrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/pagination"
)

func newTestService(t *testing.T, pageSize int) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	recorder, err := audit.NewRecorder(audit.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Assets:          assets.NewRepository(conn),
		Assignments:     assignments.NewRepository(conn),
		Recorder:        recorder,
		DefaultPageSize: pageSize,
	})
	require.NoError(t, err)
	return svc, conn
}

func TestUnknownAssetIsNotFound(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()
	missing := uuid.New()

	_, err := svc.GetAsset(ctx, missing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.GetCurrentAssignment(ctx, missing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.GetStatusHistory(ctx, missing, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.GetAssignmentHistory(ctx, missing, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.GetAssignmentEvents(ctx, missing, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetStatusHistoryPagesNewestFirst(t *testing.T) {
	svc, conn := newTestService(t, 2)
	ctx := context.Background()
	asset := dbtest.SeedAsset(t, conn, enums.AssetStatusInStock, nil)
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	statuses := []enums.AssetStatus{enums.AssetStatusInStock, enums.AssetStatusInRepair, enums.AssetStatusInStock}
	for i, status := range statuses {
		require.NoError(t, conn.Create(&models.StatusHistoryRecord{
			AssetID:   asset.ID,
			Status:    status,
			ChangedAt: base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}

	first, err := svc.GetStatusHistory(ctx, asset.ID, pagination.Params{Page: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, first.Total)
	assert.Equal(t, 2, first.Size)
	assert.True(t, first.HasNext)
	require.Len(t, first.Items, 2)
	assert.True(t, first.Items[0].ChangedAt.Equal(base.Add(2*time.Hour)))

	second, err := svc.GetStatusHistory(ctx, asset.ID, pagination.Params{Page: 2})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.False(t, second.HasNext)
	assert.True(t, second.Items[0].ChangedAt.Equal(base))
}

func TestGetAssignmentHistoryAndCurrent(t *testing.T) {
	svc, conn := newTestService(t, 0)
	ctx := context.Background()
	holder := uuid.New()
	asset := dbtest.SeedAsset(t, conn, enums.AssetStatusActive, &holder)

	current, err := svc.GetCurrentAssignment(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, holder, current.UserID)

	page, err := svc.GetAssignmentHistory(ctx, asset.ID, pagination.Params{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, current.ID, page.Items[0].ID)

	unassigned := dbtest.SeedAsset(t, conn, enums.AssetStatusInStock, nil)
	_, err = svc.GetCurrentAssignment(ctx, unassigned.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	empty, err := svc.GetAssignmentHistory(ctx, unassigned.ID, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, pagination.DefaultSize, empty.Size)
}

func TestGetAssignmentEventsPagesNewestFirst(t *testing.T) {
	svc, conn := newTestService(t, 0)
	ctx := context.Background()
	asset := dbtest.SeedAsset(t, conn, enums.AssetStatusInStock, nil)
	holder := uuid.New()
	assignmentID := uuid.New()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	kinds := []enums.AssignmentEventType{enums.AssignmentEventAssigned, enums.AssignmentEventUnassigned}
	for i, kind := range kinds {
		require.NoError(t, conn.Create(&models.AssignmentEvent{
			AssetID:      asset.ID,
			AssignmentID: assignmentID,
			UserID:       holder,
			Type:         kind,
			OccurredAt:   base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}

	page, err := svc.GetAssignmentEvents(ctx, asset.ID, pagination.Params{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, pagination.DefaultSize, page.Size)
	require.Len(t, page.Items, 2)
	assert.Equal(t, enums.AssignmentEventUnassigned, page.Items[0].Type)
	assert.Equal(t, enums.AssignmentEventAssigned, page.Items[1].Type)
	assert.Equal(t, holder, page.Items[1].UserID)
}
