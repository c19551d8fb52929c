package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/srgulbay/mikrocoach/internal/coach"
	"github.com/srgulbay/mikrocoach/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath       string // Path to the Excel or CSV file
	UserColumn     string // Column with the user id
	ItemTypeColumn string // Column with the item type
	ItemIDColumn   string // Column with the item id
	ContextColumn  string // Column with the optional exam context hint
	SheetName      string // Name of the sheet to import
	StartRow       int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		UserColumn:     "A",
		ItemTypeColumn: "B",
		ItemIDColumn:   "C",
		ContextColumn:  "D",
		SheetName:      "Sheet1",
		StartRow:       2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Added          int
	AlreadyTracked int
	Errors         []string
}

// ImportEntries mass-registers learning items with the coach from an
// Excel or CSV file. Rows for already-tracked items count as
// AlreadyTracked; the upsert never resets their progress.
func ImportEntries(ctx context.Context, coachService *coach.Service, config ImportConfig) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))

	if ext == ".csv" {
		return importFromCSV(ctx, coachService, config)
	}
	return importFromExcel(ctx, coachService, config)
}

// importFromExcel imports entries from an Excel file
func importFromExcel(ctx context.Context, coachService *coach.Service, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	result := &ImportResult{
		Errors: make([]string, 0),
	}

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}

	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}

		result.TotalProcessed++

		if err := processRow(ctx, coachService, row, config, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}

	return result, nil
}

// importFromCSV imports entries from a CSV file
func importFromCSV(ctx context.Context, coachService *coach.Service, config ImportConfig) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	result := &ImportResult{
		Errors: make([]string, 0),
	}

	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %v", err)
		}

		rowNum++

		// Skip header rows
		if rowNum < config.StartRow {
			continue
		}

		result.TotalProcessed++

		if err := processRow(ctx, coachService, row, config, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}

	return result, nil
}

// processRow registers one row's item with the coach
func processRow(ctx context.Context, coachService *coach.Service, row []string, config ImportConfig, result *ImportResult) error {
	var userStr, typeStr, itemStr, hint string

	if colIdx := columnToIndex(config.UserColumn); colIdx < len(row) {
		userStr = strings.TrimSpace(row[colIdx])
	}
	if colIdx := columnToIndex(config.ItemTypeColumn); colIdx < len(row) {
		typeStr = strings.TrimSpace(row[colIdx])
	}
	if colIdx := columnToIndex(config.ItemIDColumn); colIdx < len(row) {
		itemStr = strings.TrimSpace(row[colIdx])
	}
	if config.ContextColumn != "" {
		if colIdx := columnToIndex(config.ContextColumn); colIdx < len(row) {
			hint = strings.TrimSpace(row[colIdx])
		}
	}

	if userStr == "" || typeStr == "" || itemStr == "" {
		return fmt.Errorf("missing required fields")
	}

	userID, err := strconv.ParseInt(userStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", userStr)
	}
	itemID, err := strconv.ParseInt(itemStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", itemStr)
	}
	itemType := models.ItemType(typeStr)
	if !itemType.Valid() {
		return fmt.Errorf("unknown item type %q", typeStr)
	}

	_, created, err := coachService.TrackItem(ctx, userID, itemType, itemID, hint)
	if err != nil {
		return err
	}

	if created {
		result.Added++
	} else {
		result.AlreadyTracked++
	}
	return nil
}

// columnToIndex converts a column letter (A, B, ..., Z, AA, ...) to a 0-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(strings.TrimSpace(column))
	index := 0
	for _, c := range column {
		index = index*26 + int(c-'A') + 1
	}
	return index - 1
}
