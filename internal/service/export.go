package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"geoponto/internal/i18n"
)

var exportColumns = []string{
	"export_col_date",
	"export_col_time",
	"export_col_employee",
	"export_col_type",
	"export_col_status",
	"export_col_distance",
	"export_col_lat",
	"export_col_lng",
	"export_col_device",
	"export_col_ip",
}

type ExportService struct {
	points PointRepository
	loc    *time.Location
}

func NewExportService(points PointRepository, loc *time.Location) *ExportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ExportService{points: points, loc: loc}
}

// Export writes the company's records in [from, to) as an XLSX workbook,
// one row per record, oldest first.
func (s *ExportService) Export(ctx context.Context, companyID string, from, to time.Time, w io.Writer) error {
	if !to.After(from) {
		return fmt.Errorf("%w: empty export range", ErrInvalid)
	}
	records, err := s.points.ListByCompanyBetween(ctx, companyID, from, to)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := i18n.T(ctx, "export_sheet")
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(exportColumns))
	for i, id := range exportColumns {
		header[i] = i18n.T(ctx, id)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// listings come newest first
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		at := r.Timestamp.In(s.loc)
		row := []any{
			at.Format("02/01/2006"),
			at.Format("15:04:05"),
			r.UserName,
			i18n.T(ctx, "record_type_"+string(r.Type)),
			i18n.T(ctx, "status_"+string(r.Status)),
			r.DistanceFromOffice,
			r.Location.Lat,
			r.Location.Lng,
			r.DeviceInfo,
			r.IP,
		}
		cell, err := excelize.CoordinatesToCellName(1, len(records)-i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %s: %w", cell, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "J", 16); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
