package leave_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

func TestLevelsFor(t *testing.T) {
	tests := []struct {
		days string
		want int
	}{
		{"1", 1},
		{"3", 1},
		{"3.5", 2},
		{"4", 2},
		{"7", 2},
		{"8", 3},
		{"30", 3},
	}
	for _, tt := range tests {
		t.Run(tt.days, func(t *testing.T) {
			assert.Equal(t, tt.want, leave.LevelsFor(decimal.RequireFromString(tt.days)))
		})
	}
}

func TestResolveAll_FollowsOrgChart(t *testing.T) {
	f := newFixture(t)
	emp, err := f.dir.GetEmployee(f.ctx, "emp-1")
	require.NoError(t, err)

	approvers, err := f.chain.ResolveAll(f.ctx, emp)
	require.NoError(t, err)

	require.Len(t, approvers, leave.MaxApprovalLevels)
	assert.Equal(t, "mgr-1", approvers[0].ID)
	assert.Equal(t, "lead-1", approvers[1].ID)
	assert.Equal(t, "gm-1", approvers[2].ID)
	assert.Equal(t, "Gina", approvers[2].Name)
}

func TestResolveAll_ToleratesGaps(t *testing.T) {
	f := newFixture(t)
	orphan := &leave.Employee{ID: "orphan", Name: "Otto"}

	approvers, err := f.chain.ResolveAll(f.ctx, orphan)
	require.NoError(t, err)

	assert.Empty(t, approvers[0].ID)
	assert.Empty(t, approvers[1].ID)
	assert.Equal(t, "gm-1", approvers[2].ID)
}

func TestBuildRecords_OnlyFirstLevelPending(t *testing.T) {
	f := newFixture(t)
	approvers := []leave.ResolvedApprover{
		{Level: 1, ID: "mgr-1", Name: "Mia"},
		{Level: 2},
		{Level: 3, ID: "gm-1", Name: "Gina"},
	}

	records := f.chain.BuildRecords("LR1", 3, approvers)

	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, i+1, rec.Level)
		assert.Equal(t, "LR1", rec.RequestID)
		assert.NotEmpty(t, rec.ID)
	}
	assert.Equal(t, leave.ApprovalPending, records[0].Status)
	assert.Equal(t, leave.ApprovalWaiting, records[1].Status)
	assert.Equal(t, leave.ApprovalWaiting, records[2].Status)
	assert.Empty(t, records[1].ApproverID)
	assert.Equal(t, "Gina", records[2].ApproverName)
}

func TestLabels_FallBackToCodes(t *testing.T) {
	r := leave.Request{Type: leave.TypeSick, Status: leave.StatusApproving}
	labels := leave.StaticLabels{
		leave.DictLeaveType: {"sick": "Sick leave"},
	}

	got := leave.LabelRequest(labels, r)
	assert.Equal(t, "Sick leave", got.Type)
	assert.Equal(t, "approving", got.Status)

	bare := leave.LabelRequest(nil, r)
	assert.Equal(t, "sick", bare.Type)

	assert.Equal(t, "waiting", leave.LabelApproval(labels, leave.ApprovalRecord{Status: leave.ApprovalWaiting}))
}
