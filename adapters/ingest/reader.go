// Package ingest reads study tables from CSV and Excel files into the
// untyped RawTable handed to schema validation.
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"bayesrisk/domain/dataset"
)

// DataReader handles reading Excel and CSV study tables
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a reader for the file, dispatching on extension
func NewDataReader(filePath string) *DataReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadTable reads the file into a RawTable: a header row plus string
// cells. No typing or validation happens here; that is the schema
// stage's job.
func (r *DataReader) ReadTable() (dataset.RawTable, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return dataset.RawTable{}, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSV()
	default:
		return r.readExcel()
	}
}

func (r *DataReader) readCSV() (dataset.RawTable, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return dataset.RawTable{}, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return dataset.RawTable{}, fmt.Errorf("failed to parse CSV file: %w", err)
	}
	return tableFromRecords(records)
}

func (r *DataReader) readExcel() (dataset.RawTable, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return dataset.RawTable{}, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return dataset.RawTable{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return tableFromRecords(rows)
}

func tableFromRecords(records [][]string) (dataset.RawTable, error) {
	if len(records) < 2 {
		return dataset.RawTable{}, fmt.Errorf("table needs a header row and at least one subject")
	}
	header := records[0]
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		// Excel rows can come back short of the header width
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
	}
	return dataset.RawTable{Columns: header, Rows: rows}, nil
}
