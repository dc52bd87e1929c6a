// Package export writes booking lists to spreadsheet files.
package export

import (
	"fmt"
	"io"
	"time"

	"bookingclient/internal/models"

	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single bookings sheet.
const SheetName = "Bookings"

// Columns is the header row of the bookings sheet.
var Columns = []string{"ID", "Facility", "Date", "Start", "End", "Status", "Created"}

// Sheet writes rows into a single excelize sheet.
type Sheet struct {
	file *excelize.File
	name string
	row  int
}

// NewSheet creates a workbook whose default sheet is renamed to name.
func NewSheet(name string) (*Sheet, error) {
	// Excel limit
	if len(name) > 31 {
		name = name[:31]
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	return &Sheet{file: f, name: name, row: 1}, nil
}

// WriteHeader writes a bold header row.
func (s *Sheet) WriteHeader(columns []string) error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, s.row)
		if err != nil {
			return err
		}
		if err := s.file.SetCellValue(s.name, cell, col); err != nil {
			return err
		}
	}

	style, err := s.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		start, _ := excelize.CoordinatesToCellName(1, s.row)
		end, _ := excelize.CoordinatesToCellName(len(columns), s.row)
		_ = s.file.SetCellStyle(s.name, start, end, style)
	}

	s.row++
	return nil
}

// WriteRow writes one data row.
func (s *Sheet) WriteRow(values []any) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, s.row)
		if err != nil {
			return err
		}
		if err := s.file.SetCellValue(s.name, cell, val); err != nil {
			return err
		}
	}
	s.row++
	return nil
}

func (s *Sheet) Save(w io.Writer) error {
	return s.file.Write(w)
}

func (s *Sheet) SaveToFile(path string) error {
	return s.file.SaveAs(path)
}

func (s *Sheet) Close() error {
	return s.file.Close()
}

// Bookings renders bookings into a new sheet. names maps facility IDs to
// display names; unknown IDs are written as numbers. The caller closes
// the returned sheet.
func Bookings(bookings []models.BookingRecord, names map[int64]string) (*Sheet, error) {
	s, err := NewSheet(SheetName)
	if err != nil {
		return nil, err
	}
	if err := s.WriteHeader(Columns); err != nil {
		_ = s.Close()
		return nil, err
	}
	for _, b := range bookings {
		var facility any = b.FacilityID
		if name, ok := names[b.FacilityID]; ok {
			facility = name
		}
		created := ""
		if !b.CreatedAt.IsZero() {
			created = b.CreatedAt.UTC().Format(time.RFC3339)
		}
		row := []any{
			b.ID,
			facility,
			b.BookingDate,
			fmt.Sprintf("%02d:00", b.StartHour),
			fmt.Sprintf("%02d:00", b.EndHour),
			string(b.Status),
			created,
		}
		if err := s.WriteRow(row); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("write booking %d: %w", b.ID, err)
		}
	}
	return s, nil
}

// WriteBookingsFile renders bookings and saves them to path.
func WriteBookingsFile(path string, bookings []models.BookingRecord, names map[int64]string) error {
	s, err := Bookings(bookings, names)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.SaveToFile(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
