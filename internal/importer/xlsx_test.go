package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestSplitXLSX(t *testing.T) {
	// Create a temporary directory for the test
	tmpDir, err := os.MkdirTemp("", "split-xlsx-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// Create a mock Excel file with one change sheet and one noise sheet
	xlsxPath := filepath.Join(tmpDir, "changes.xlsx")
	f := excelize.NewFile()

	sheetName := "2024-Q4"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		t.Fatalf("failed to create sheet: %v", err)
	}
	f.SetActiveSheet(index)

	// Set headers
	f.SetCellValue(sheetName, "A1", "number")
	f.SetCellValue(sheetName, "B1", "title")
	f.SetCellValue(sheetName, "C1", "author")
	f.SetCellValue(sheetName, "D1", "branch")
	f.SetCellValue(sheetName, "E1", "labels")
	f.SetCellValue(sheetName, "F1", "body")

	// Set data
	f.SetCellValue(sheetName, "A2", 42)
	f.SetCellValue(sheetName, "B2", "fix race in scheduler")
	f.SetCellValue(sheetName, "C2", "alice")
	f.SetCellValue(sheetName, "E2", "☢️ Bug")

	f.SetCellValue(sheetName, "A3", 7)
	f.SetCellValue(sheetName, "B3", "add new feature X")
	f.SetCellValue(sheetName, "C3", "bob")

	// A sheet that doesn't contain change records
	noiseSheet := "Notes"
	if _, err := f.NewSheet(noiseSheet); err != nil {
		t.Fatalf("failed to create sheet: %v", err)
	}
	f.SetCellValue(noiseSheet, "A1", "remember to cut the release on friday")
	f.SetCellValue(noiseSheet, "A2", "ping the infra team first")

	if err := f.SaveAs(xlsxPath); err != nil {
		t.Fatalf("failed to save excel file: %v", err)
	}

	// Output directory
	outDir := filepath.Join(tmpDir, "output")

	if err := SplitXLSX(xlsxPath, outDir); err != nil {
		t.Fatalf("SplitXLSX failed: %v", err)
	}

	// The change sheet becomes a CSV with the import column layout
	csvPath := filepath.Join(outDir, "2024-Q4.csv")
	checkFileExists(t, csvPath)
	checkFileContains(t, csvPath, "number,title,author,branch,labels,body")
	checkFileContains(t, csvPath, "42,fix race in scheduler,alice")
	checkFileContains(t, csvPath, "7,add new feature X,bob")

	// The noise sheet is skipped
	if _, err := os.Stat(filepath.Join(outDir, "Notes.csv")); !os.IsNotExist(err) {
		t.Errorf("expected Notes sheet to be skipped")
	}
}

func TestIsValidChangeSheet(t *testing.T) {
	valid := [][]string{
		{"number", "title", "author"},
		{"42", "fix race in scheduler", "alice"},
		{"7", "add new feature X", "bob"},
	}
	if !isValidChangeSheet(valid) {
		t.Errorf("expected sheet with numbered rows to be valid")
	}

	invalid := [][]string{
		{"remember to cut the release on friday"},
		{"ping the infra team first"},
	}
	if isValidChangeSheet(invalid) {
		t.Errorf("expected free-text sheet to be invalid")
	}

	if isValidChangeSheet(nil) {
		t.Errorf("expected empty sheet to be invalid")
	}
}

func TestSanitizeSheetName(t *testing.T) {
	cases := map[string]string{
		"2024-Q4":    "2024-Q4",
		"a/b:c":      "a_b_c",
		"   ":        "sheet",
		`bad<>name?`: "bad__name_",
	}
	for in, want := range cases {
		if got := sanitizeSheetName(in); got != want {
			t.Errorf("sanitizeSheetName(%q) = %q, want %q", in, got, want)
		}
	}
}

func checkFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file %s to exist: %v", path, err)
	}
}

func checkFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("expected %s to contain %q", path, substr)
	}
}
