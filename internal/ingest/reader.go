package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"qb-reconciliation-service/pkg/errors"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// FileFormat identifies the physical encoding of an uploaded file.
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatXLSX FileFormat = "xlsx"
	FormatXLS  FileFormat = "xls"
)

// DetectFormat guesses the file format from the filename extension,
// defaulting to CSV.
func DetectFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	default:
		return FormatCSV
	}
}

// ReadRows decodes raw file bytes into a grid of string cells.
func ReadRows(raw []byte, format FileFormat) ([][]string, error) {
	switch format {
	case FormatXLSX:
		return readXLSXRows(raw)
	case FormatXLS:
		return readXLSRows(raw)
	default:
		return readCSVRows(raw)
	}
}

func readCSVRows(raw []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1 // QuickBooks rows are ragged
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryFile, errors.CodeFileCorrupted, "failed to read delimited text")
		}
		rows = append(rows, record)
	}

	if len(rows) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyFile, 0, "", "", nil)
	}
	return rows, nil
}

func readXLSXRows(raw []byte) ([][]string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFile, errors.CodeFileCorrupted, "failed to open workbook")
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyFile, 0, "", "", nil)
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFile, errors.CodeFileCorrupted, "failed to read workbook rows")
	}
	if len(rows) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyFile, 0, "", "", nil)
	}
	return rows, nil
}

func readXLSRows(raw []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(raw), "utf-8")
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFile, errors.CodeFileCorrupted, "failed to open legacy workbook")
	}

	rows := workbook.ReadAllCells(maxWorkbookRows)
	if len(rows) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyFile, 0, "", "", nil)
	}
	return rows, nil
}

// maxWorkbookRows bounds legacy workbook reads; General Ledger exports
// top out well below this.
const maxWorkbookRows = 100000
