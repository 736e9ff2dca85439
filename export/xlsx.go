// Package export renders leave request listings as spreadsheets.
package export

import (
	"bytes"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/leave"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName      = "Leave requests"
	dateTimeLayout = "2006-01-02 15:04"
)

var requestHeaders = []string{
	"Request ID", "Applicant", "Department", "Leave type", "Start", "End",
	"Days", "Status", "Approval level", "Reason", "Created at",
}

// Exporter writes request lists to xlsx. Labels may be nil.
type Exporter struct {
	Labels leave.LabelSource
}

func NewExporter(labels leave.LabelSource) *Exporter {
	return &Exporter{Labels: labels}
}

func (e *Exporter) Requests(list []leave.Request) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("failed to close xlsx file")
		}
	}()

	sheet := "Sheet1"
	row, err := writeHeader(f, sheet, 0, requestHeaders)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write xlsx header")
	}
	if len(list) != 0 {
		if _, err = e.writeRequests(f, sheet, list, row); err != nil {
			return nil, errors.Wrap(err, "failed to write xlsx rows")
		}
	}
	if err := f.SetSheetName(sheet, sheetName); err != nil {
		return nil, errors.Wrap(err, "failed to rename sheet")
	}
	return f.WriteToBuffer()
}

func (e *Exporter) writeRequests(f *excelize.File, sheet string, list []leave.Request, row int) (int, error) {
	if err := applyDataCellStyle(f, sheet, 1, row+1, len(requestHeaders), row+len(list)); err != nil {
		return row, err
	}
	for _, r := range list {
		row++
		labels := leave.LabelRequest(e.Labels, r)
		days, _ := r.Duration.Float64()
		values := []any{
			r.ID,
			r.ApplicantID,
			r.DepartmentID,
			labels.Type,
			r.StartTime.Format(dateTimeLayout),
			r.EndTime.Format(dateTimeLayout),
			days,
			labels.Status,
			r.CurrentApprovalLevel,
			r.Reason,
			r.CreatedAt.Format(dateTimeLayout),
		}
		for i, v := range values {
			if err := writeColumn(f, sheet, i+1, row, v); err != nil {
				return row, err
			}
		}
	}
	return row, nil
}

func writeColumn(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func writeHeader(f *excelize.File, sheet string, row int, headers []string) (int, error) {
	row++
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Font:      &excelize.Font{Bold: true, Size: 11},
	})
	if err != nil {
		return row, err
	}
	cellFirst, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return row, err
	}
	cellLast, err := excelize.CoordinatesToCellName(len(headers), row)
	if err != nil {
		return row, err
	}
	if err = f.SetCellStyle(sheet, cellFirst, cellLast, style); err != nil {
		return row, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return row, err
	}
	if err = f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return row, err
	}
	for idx, value := range headers {
		if err = writeColumn(f, sheet, idx+1, row, value); err != nil {
			return row, err
		}
	}
	return row, nil
}

func applyDataCellStyle(f *excelize.File, sheet string, colFrom, rowFrom, colTo, rowTo int) error {
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		Font:      &excelize.Font{Size: 11},
	})
	if err != nil {
		return err
	}
	cellFirst, err := excelize.CoordinatesToCellName(colFrom, rowFrom)
	if err != nil {
		return err
	}
	cellLast, err := excelize.CoordinatesToCellName(colTo, rowTo)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cellFirst, cellLast, style)
}
