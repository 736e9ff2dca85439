package export

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
	"github.com/xuri/excelize/v2"
)

func TestRequests_WritesLabelledRows(t *testing.T) {
	// GIVEN: one request and a label dictionary
	labels := leave.StaticLabels{
		leave.DictLeaveType:   {"annual": "Annual leave"},
		leave.DictLeaveStatus: {"approved": "Approved"},
	}
	list := []leave.Request{{
		ID:          "LR202503100001",
		ApplicantID: "emp-1",
		Type:        leave.TypeAnnual,
		StartTime:   time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2025, 3, 11, 18, 0, 0, 0, time.UTC),
		Duration:    decimal.NewFromInt(2),
		Status:      leave.StatusApproved,
		CreatedAt:   time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}}

	// WHEN: exporting
	buf, err := NewExporter(labels).Requests(list)
	require.NoError(t, err)

	// THEN: the workbook holds the header and one labelled row
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, requestHeaders, rows[0])
	assert.Equal(t, "LR202503100001", rows[1][0])
	assert.Equal(t, "Annual leave", rows[1][3])
	assert.Equal(t, "2025-03-10 09:00", rows[1][4])
	assert.Equal(t, "2", rows[1][6])
	assert.Equal(t, "Approved", rows[1][7])
}

func TestRequests_EmptyListHasHeaderOnly(t *testing.T) {
	buf, err := NewExporter(nil).Requests(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
