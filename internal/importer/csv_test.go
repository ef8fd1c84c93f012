package importer

import (
	"os"
	"path/filepath"
	"testing"

	"release-draft-maker/internal/config"
	dbpkg "release-draft-maker/internal/db"
)

func testDatabase(t *testing.T) *dbpkg.DB {
	t.Helper()
	database, err := dbpkg.New(filepath.Join(t.TempDir(), "changes.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "changes.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}
	return path
}

func TestImportCSV(t *testing.T) {
	database := testDatabase(t)
	csvPath := writeCSV(t, `number,title,author,branch,labels,body
42,fix race in scheduler,alice,hotfix/race,☢️ Bug,
7,add new feature X,bob,feature/x,✏️ Feature;needs-docs,Adds feature X
,missing number,carol,,,
51,bump deps,dependabot[bot],,,
`)

	stats, err := ImportCSV(database, csvPath, nil)
	if err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}

	if stats.Imported != 3 {
		t.Errorf("expected 3 imported changes, got %d", stats.Imported)
	}
	if stats.NewChanges != 3 {
		t.Errorf("expected 3 new changes, got %d", stats.NewChanges)
	}
	if !stats.HeaderSkipped {
		t.Errorf("expected the header row to be detected")
	}
	if stats.Skipped != 2 { // header + the row with no number
		t.Errorf("expected 2 skipped rows, got %d", stats.Skipped)
	}
	if len(stats.Errors) != 1 {
		t.Errorf("expected 1 row error, got %d: %v", len(stats.Errors), stats.Errors)
	}

	changes, err := database.GetAllChanges()
	if err != nil {
		t.Fatalf("GetAllChanges failed: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("expected 3 stored changes, got %d", len(changes))
	}

	// Ordered by number: 7, 42, 51
	if changes[0].Number != 7 || changes[0].Author != "bob" {
		t.Errorf("unexpected first change: %+v", changes[0])
	}
	if len(changes[0].Labels) != 2 {
		t.Errorf("expected 2 labels on change #7, got %v", changes[0].Labels)
	}
	if changes[2].Number != 51 || len(changes[2].Labels) != 0 {
		t.Errorf("unexpected last change: %+v", changes[2])
	}
}

func TestImportCSVIsIdempotent(t *testing.T) {
	database := testDatabase(t)
	csvPath := writeCSV(t, "42,fix race in scheduler,alice,,☢️ Bug,\n")

	if _, err := ImportCSV(database, csvPath, nil); err != nil {
		t.Fatalf("first import failed: %v", err)
	}

	stats, err := ImportCSV(database, csvPath, nil)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if stats.NewChanges != 0 {
		t.Errorf("expected no new changes on re-import, got %d", stats.NewChanges)
	}
	if stats.ExistingChanges != 1 {
		t.Errorf("expected 1 existing change on re-import, got %d", stats.ExistingChanges)
	}

	changes, err := database.GetAllChanges()
	if err != nil {
		t.Fatalf("GetAllChanges failed: %v", err)
	}
	if len(changes) != 1 {
		t.Errorf("expected 1 stored change after re-import, got %d", len(changes))
	}
}

func TestImportCSVAutolabels(t *testing.T) {
	rules, err := config.Parse([]byte(`
categories:
  - title: "🐛 Bug Fixes"
    labels: ["☢️ Bug"]
version-resolver:
  patch:
    labels: ["☢️ Bug"]
autolabeler:
  - label: "☢️ Bug"
    title: ["/fix/i"]
`))
	if err != nil {
		t.Fatalf("failed to parse rules: %v", err)
	}

	database := testDatabase(t)
	csvPath := writeCSV(t, "42,fix race in scheduler,alice,,,\n")

	stats, err := ImportCSV(database, csvPath, rules)
	if err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}
	if stats.Autolabeled != 1 {
		t.Errorf("expected 1 autolabeled change, got %d", stats.Autolabeled)
	}

	changes, err := database.GetAllChanges()
	if err != nil {
		t.Fatalf("GetAllChanges failed: %v", err)
	}
	if len(changes) != 1 || !changes[0].HasLabel("☢️ Bug") {
		t.Errorf("expected change #42 to carry the autolabel, got %+v", changes)
	}
}

func TestCountCSVLines(t *testing.T) {
	csvPath := writeCSV(t, "1,a,x,,,\n2,b,y,,,\n3,c,z,,,\n")
	count, err := CountCSVLines(csvPath)
	if err != nil {
		t.Fatalf("CountCSVLines failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 lines, got %d", count)
	}
}
