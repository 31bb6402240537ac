package assets

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/assettrack-backend/api/validators"
	"github.com/angelmondragon/assettrack-backend/internal/assets"
	"github.com/angelmondragon/assettrack-backend/internal/assignments"
)

type registerRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	SerialNumber *string `json:"serial_number" validate:"omitempty,max=255"`
	AssetTag     *string `json:"asset_tag" validate:"omitempty,max=255"`
	PoNumber     *string `json:"po_number" validate:"omitempty,max=100"`
}

func (r registerRequest) toInput(actor *uuid.UUID) assets.RegisterInput {
	return assets.RegisterInput{
		Name:         strings.TrimSpace(r.Name),
		SerialNumber: trimmed(r.SerialNumber),
		AssetTag:     trimmed(r.AssetTag),
		PoNumber:     trimmed(r.PoNumber),
		ActorUserID:  actor,
	}
}

type statusRequest struct {
	Status          string `json:"status" validate:"required"`
	Remarks         string `json:"remarks" validate:"max=1000"`
	ExpectedVersion *int   `json:"expected_version" validate:"omitempty,gte=1"`
}

func (r statusRequest) toInput(assetID uuid.UUID, actor *uuid.UUID) assets.ChangeStatusInput {
	return assets.ChangeStatusInput{
		AssetID:         assetID,
		Status:          r.Status,
		ActorUserID:     actor,
		Remarks:         validators.SanitizeString(r.Remarks, validators.MaxRemarksLength),
		ExpectedVersion: r.ExpectedVersion,
	}
}

type assignRequest struct {
	UserID          string `json:"user_id" validate:"required,uuid"`
	Remarks         string `json:"remarks" validate:"max=1000"`
	ExpectedVersion *int   `json:"expected_version" validate:"omitempty,gte=1"`
}

func (r assignRequest) toInput(assetID uuid.UUID, actor *uuid.UUID) assignments.AssignInput {
	return assignments.AssignInput{
		AssetID:         assetID,
		UserID:          uuid.MustParse(r.UserID),
		ActorUserID:     actor,
		Remarks:         validators.SanitizeString(r.Remarks, validators.MaxRemarksLength),
		ExpectedVersion: r.ExpectedVersion,
	}
}

type unassignRequest struct {
	Remarks         string `json:"remarks" validate:"max=1000"`
	ExpectedVersion *int   `json:"expected_version" validate:"omitempty,gte=1"`
}

func (r unassignRequest) toInput(assetID uuid.UUID, actor *uuid.UUID) assignments.UnassignInput {
	return assignments.UnassignInput{
		AssetID:         assetID,
		ActorUserID:     actor,
		Remarks:         validators.SanitizeString(r.Remarks, validators.MaxRemarksLength),
		ExpectedVersion: r.ExpectedVersion,
	}
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	if out == "" {
		return nil
	}
	return &out
}
