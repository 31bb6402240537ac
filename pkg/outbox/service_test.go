package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelopeInTransaction(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()

	assetID := uuid.New()
	actor := uuid.New()
	occurred := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventAssetStatusChanged,
			AggregateType: enums.AggregateAsset,
			AggregateID:   assetID,
			Actor:         ActorFor(&actor),
			OccurredAt:    occurred,
			Data: payloads.AssetStatusChangedEvent{
				AssetID:        assetID,
				PreviousStatus: enums.AssetStatusInStock,
				Status:         enums.AssetStatusInRepair,
			},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventAssetStatusChanged, rows[0].EventType)
	assert.Equal(t, assetID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, CurrentVersion, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, actor, envelope.Actor.UserID)
	assert.True(t, envelope.OccurredAt.Equal(occurred))

	var data payloads.AssetStatusChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, enums.AssetStatusInRepair, data.Status)
}

func TestEmitRolledBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventAssetAssigned,
			AggregateType: enums.AggregateAsset,
			AggregateID:   uuid.New(),
			Data:          payloads.AssetAssignedEvent{},
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitValidation(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventAssetAssigned, AggregateType: enums.AggregateAsset}))
	require.Error(t, svc.Emit(context.Background(), db, DomainEvent{EventType: "order_created", AggregateType: enums.AggregateAsset}))
	require.Error(t, svc.Emit(context.Background(), db, DomainEvent{EventType: enums.EventAssetAssigned, AggregateType: "store"}))
}

func TestActorFor(t *testing.T) {
	assert.Nil(t, ActorFor(nil))
	nilID := uuid.Nil
	assert.Nil(t, ActorFor(&nilID))
	id := uuid.New()
	assert.Equal(t, id, ActorFor(&id).UserID)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)

	first := models.OutboxEvent{EventType: enums.EventAssetAssigned, AggregateType: enums.AggregateAsset, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	second := models.OutboxEvent{EventType: enums.EventAssetUnassigned, AggregateType: enums.AggregateAsset, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, repo.Insert(db, first))
	require.NoError(t, repo.Insert(db, second))

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(db, rows[0].ID))
	require.NoError(t, repo.MarkTerminalTx(db, rows[1].ID, errors.New("bad payload"), 3))

	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)

	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
