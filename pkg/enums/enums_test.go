package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssetStatusNormalizes(t *testing.T) {
	status, err := ParseAssetStatus(" in_repair ")
	require.NoError(t, err)
	assert.Equal(t, AssetStatusInRepair, status)

	_, err = ParseAssetStatus("LOST")
	assert.Error(t, err)
}

func TestAssetStatusAssignmentRules(t *testing.T) {
	for _, status := range AssetStatuses() {
		assert.False(t, status.RequiresAssignment() && status.ForbidsAssignment(), status)
	}
	assert.True(t, AssetStatusActive.RequiresAssignment())
	assert.True(t, AssetStatusBroken.ForbidsAssignment())
	assert.True(t, AssetStatusCeased.ForbidsAssignment())
	assert.False(t, AssetStatusInRepair.ForbidsAssignment())
	assert.False(t, AssetStatusInStock.RequiresAssignment())
}

func TestAssetStatusesReturnsCopy(t *testing.T) {
	statuses := AssetStatuses()
	statuses[0] = "MUTATED"
	assert.Equal(t, AssetStatusInStock, AssetStatuses()[0])
}

func TestUserRoles(t *testing.T) {
	role, err := ParseUserRole("Asset_Manager")
	require.NoError(t, err)
	assert.True(t, role.CanMutate())
	assert.True(t, UserRoleAdmin.CanMutate())
	assert.False(t, UserRoleViewer.CanMutate())

	_, err = ParseUserRole("owner")
	assert.Error(t, err)
}

func TestParseAcquisitionType(t *testing.T) {
	acq, err := ParseAcquisitionType("lease")
	require.NoError(t, err)
	assert.Equal(t, AcquisitionLease, acq)

	_, err = ParseAcquisitionType("barter")
	assert.Error(t, err)
}

func TestOutboxEnums(t *testing.T) {
	assert.True(t, EventPoNumberMigrated.IsValid())
	assert.False(t, OutboxEventType("asset_deleted").IsValid())

	agg, err := ParseOutboxAggregateType("purchase_order")
	require.NoError(t, err)
	assert.Equal(t, AggregatePurchaseOrder, agg)
}
