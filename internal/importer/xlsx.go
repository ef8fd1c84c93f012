package importer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// csvHeader is the column layout written for split sheets, matching
// what ImportCSV expects
var csvHeader = []string{"number", "title", "author", "branch", "labels", "body"}

// SplitXLSX splits a change workbook into CSV files, one per sheet,
// ready for the import command. Sheets whose rows don't look like
// change records (no pull-request numbers in the first column) are
// skipped. Returns a summary of processed and skipped sheets.
func SplitXLSX(xlsxPath, outputDir string) error {
	// Open Excel file
	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		return fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetList := f.GetSheetList()
	if len(sheetList) == 0 {
		return fmt.Errorf("no sheets found in Excel file")
	}

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var processed []string
	var skipped []string

	// Process each sheet
	for _, sheetName := range sheetList {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			fmt.Printf("Warning: failed to read sheet '%s': %v\n", sheetName, err)
			skipped = append(skipped, fmt.Sprintf("%s (read error)", sheetName))
			continue
		}

		if !isValidChangeSheet(rows) {
			skipped = append(skipped, fmt.Sprintf("%s (first column doesn't appear to contain pull-request numbers)", sheetName))
			continue
		}

		// Generate output filename (sanitize sheet name)
		outputFile := sanitizeSheetName(sheetName) + ".csv"
		outputPath := filepath.Join(outputDir, outputFile)

		if err := writeSheetToCSV(rows, outputPath); err != nil {
			fmt.Printf("Warning: failed to write sheet '%s' to CSV: %v\n", sheetName, err)
			skipped = append(skipped, fmt.Sprintf("%s (write error)", sheetName))
			continue
		}

		processed = append(processed, sheetName)
		fmt.Printf("Processed sheet '%s' -> %s\n", sheetName, outputPath)
	}

	// Print summary
	fmt.Println()
	fmt.Printf("Summary:\n")
	fmt.Printf("  Processed: %d sheet(s)\n", len(processed))
	for _, name := range processed {
		fmt.Printf("    - %s\n", name)
	}
	fmt.Printf("  Skipped: %d sheet(s)\n", len(skipped))
	for _, name := range skipped {
		fmt.Printf("    - %s\n", name)
	}

	return nil
}

// isValidChangeSheet checks whether a sheet's rows look like change
// records: the first column of the data rows must mostly be numeric
// pull-request numbers. The first row may be a header.
func isValidChangeSheet(rows [][]string) bool {
	if len(rows) == 0 {
		return false
	}

	dataRows := rows
	if isHeaderRow(firstCell(rows[0])) {
		dataRows = rows[1:]
	}
	if len(dataRows) == 0 {
		return false
	}

	// Sample up to the first 20 data rows
	sample := len(dataRows)
	if sample > 20 {
		sample = 20
	}

	numeric := 0
	for _, row := range dataRows[:sample] {
		cell := strings.TrimSpace(firstCell(row))
		if cell == "" {
			continue
		}
		if n, err := strconv.Atoi(cell); err == nil && n > 0 {
			numeric++
		}
	}

	// At least half of the sampled rows must carry a number
	return numeric*2 >= sample
}

func firstCell(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

// writeSheetToCSV writes sheet rows to a CSV file, normalising the
// header to the import column layout
func writeSheetToCSV(rows [][]string, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	start := 0
	if len(rows) > 0 && isHeaderRow(firstCell(rows[0])) {
		start = 1
	}

	for _, row := range rows[start:] {
		// Pad short rows so every record has the full column set
		record := make([]string, len(csvHeader))
		for i := range record {
			if i < len(row) {
				record[i] = strings.TrimSpace(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	return nil
}

// invalid filename characters to strip from sheet names
var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// sanitizeSheetName makes a sheet name safe to use as a filename
func sanitizeSheetName(name string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(name, "_")
	sanitized = strings.TrimSpace(sanitized)
	if sanitized == "" {
		sanitized = "sheet"
	}
	return sanitized
}
