package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"vavato_scrooper/models"
)

const (
	SheetOpenAuctions      = "OpenAuctions"
	SheetClosedAuctions    = "ClosedAuctions"
	SheetOpenAuctionLots   = "OpenAuctionLots"
	SheetClosedAuctionLots = "ClosedAuctionLots"
)

var (
	auctionHeader = []any{"Maison", "Name", "Start_date", "End_date", "Location", "Url"}
	lotHeader     = []any{"Event URL", "Vehicle URL"}
)

// Table is one named sheet of the workbook.
type Table struct {
	Name   string
	Header []any
	Rows   [][]any
}

// Tables lays out a result as the four workbook sheets, in workbook order.
func Tables(res *models.Result) []Table {
	return []Table{
		{Name: SheetOpenAuctions, Header: auctionHeader, Rows: auctionRows(res.OpenAuctions)},
		{Name: SheetClosedAuctions, Header: auctionHeader, Rows: auctionRows(res.ClosedAuctions)},
		{Name: SheetOpenAuctionLots, Header: lotHeader, Rows: lotRows(res.OpenAuctionLots)},
		{Name: SheetClosedAuctionLots, Header: lotHeader, Rows: lotRows(res.ClosedAuctionLots)},
	}
}

func auctionRows(records []models.AuctionRecord) [][]any {
	rows := make([][]any, 0, len(records))
	for _, a := range records {
		rows = append(rows, []any{a.House, a.Name, a.StartDate, a.EndDate, a.Location, a.URL})
	}
	return rows
}

func lotRows(records []models.LotRecord) [][]any {
	rows := make([][]any, 0, len(records))
	for _, l := range records {
		rows = append(rows, []any{l.EventURL, l.VehicleURL})
	}
	return rows
}

// OutputPath is {dir}/{prefix}_YYYYMMDD_HHMMSS.xlsx.
func OutputPath(dir, prefix string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.xlsx", prefix, at.Format("20060102_150405")))
}

// WriteWorkbook saves every non-empty table as a sheet of one xlsx file.
// It reports false and writes nothing when all tables are empty.
func WriteWorkbook(path string, tables []Table) (bool, error) {
	f := excelize.NewFile()
	defer f.Close()

	written := 0
	for _, t := range tables {
		if len(t.Rows) == 0 {
			continue
		}

		if written == 0 {
			if err := f.SetSheetName("Sheet1", t.Name); err != nil {
				return false, err
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return false, err
		}
		written++

		if err := writeRows(f, t); err != nil {
			return false, fmt.Errorf("sheet %s: %w", t.Name, err)
		}
	}
	if written == 0 {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return false, fmt.Errorf("save %s: %w", path, err)
	}
	return true, nil
}

func writeRows(f *excelize.File, t Table) error {
	rows := append([][]any{t.Header}, t.Rows...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// Uploader copies a finished workbook somewhere else, e.g. object storage.
type Uploader interface {
	UploadFile(ctx context.Context, key, path string) error
}

// WorkbookExporter writes the run's workbook to Dir and optionally uploads it.
type WorkbookExporter struct {
	Dir      string
	Prefix   string
	Uploader Uploader
	Summary  io.Writer
	Now      func() time.Time
}

func (e *WorkbookExporter) Export(ctx context.Context, runID string, res *models.Result) (string, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	if e.Summary != nil {
		RenderSummary(e.Summary, res)
	}

	path := OutputPath(e.Dir, e.Prefix, now())
	ok, err := WriteWorkbook(path, Tables(res))
	if err != nil {
		return "", err
	}
	if !ok {
		log.Printf("%s nothing scraped, no workbook written", models.LogLevelWarn.Tag())
		return "", nil
	}
	log.Printf("%s workbook saved to %s", models.LogLevelInfo.Tag(), path)

	if e.Uploader != nil {
		key := fmt.Sprintf("runs/%s/%s", runID, filepath.Base(path))
		if err := e.Uploader.UploadFile(ctx, key, path); err != nil {
			return path, fmt.Errorf("upload %s: %w", key, err)
		}
		log.Printf("%s workbook uploaded as %s", models.LogLevelInfo.Tag(), key)
	}
	return path, nil
}
