package services

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"github.com/yeremiapane/restaurant-booking/models"
)

const exportSheet = "Bookings"

var exportHeaders = []string{"ID", "Name", "Email", "Phone", "Date", "Time", "People", "Status", "Created At"}

// BookingsWorkbook renders bookings as a single-sheet spreadsheet. The
// caller closes the returned file.
func BookingsWorkbook(bookings []models.Booking) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			f.Close()
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(exportSheet, "A1", last, bold); err != nil {
		f.Close()
		return nil, err
	}

	for r, b := range bookings {
		row := []interface{}{b.ID, b.Name, b.Email, b.Phone, b.Date, b.Time, b.People, string(b.Status), b.CreatedAt.Format("2006-01-02 15:04")}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write booking %d: %w", b.ID, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "B", "C", 28); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
