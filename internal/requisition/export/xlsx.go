// Package export renders request registers as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Requests"

var headers = []string{
	"Request Number", "Requested At", "Department", "Project", "Vendor Type",
	"Document Type", "Currency", "Total", "Status", "Requester", "Bank Loaded By", "Description",
}

// WriteRequests writes one row per request to w as an xlsx workbook.
func WriteRequests(w io.Writer, requests []entity.PurchaseRequest) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := writeRow(f, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for r, pr := range requests {
		total, _ := pr.TotalAmount().Round(2).Float64()
		values := []interface{}{
			pr.RequestNumber,
			pr.RequestedAt.Format("2006-01-02"),
			pr.Department,
			projectLabel(pr),
			string(pr.VendorType),
			string(pr.DocumentType),
			string(pr.Currency),
			total,
			string(pr.Status),
			requesterLabel(pr),
			pr.SettledBy(),
			pr.ServiceDescription,
		}
		if err := writeRow(f, r+2, values); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheetName, "A", "K", 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "L", "L", 48); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func projectLabel(pr entity.PurchaseRequest) string {
	if pr.ProjectCode == "" {
		return ""
	}
	return strings.TrimSpace(pr.ProjectCode + " " + pr.ProjectName)
}

func requesterLabel(pr entity.PurchaseRequest) string {
	if pr.RequesterName != "" {
		return pr.RequesterName
	}
	return pr.RequesterID
}
