package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"minerfix-backend/models"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{
	"ID", "Timestamp", "User ID", "User Email", "Action", "Resource", "Resource ID",
	"Status", "Severity", "Category", "IP Address", "User Agent", "Details",
}

func exportRow(e models.AuditLog) []string {
	return []string{
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339),
		e.UserID,
		e.UserEmail,
		e.Action,
		e.Resource,
		e.ResourceID,
		e.Status,
		e.Severity,
		e.Category,
		e.IPAddress,
		e.UserAgent,
		string(e.Details),
	}
}

// WriteCSV writes entries with a header row.
func WriteCSV(w io.Writer, entries []models.AuditLog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write(exportRow(e)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes entries to a single "Audit Log" sheet.
func WriteXLSX(w io.Writer, entries []models.AuditLog) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Audit Log"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	for i, h := range exportHeader {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s1", col)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for r, e := range entries {
		row := r + 2
		for i, v := range exportRow(e) {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}
	f.SetColWidth(sheet, "A", "A", 38)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "D", "D", 28)

	_, err := f.WriteTo(w)
	return err
}
