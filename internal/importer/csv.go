package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"release-draft-maker/internal/classifier"
	"release-draft-maker/internal/config"
	dbpkg "release-draft-maker/internal/db"
	"release-draft-maker/internal/log"
	"release-draft-maker/internal/models"
)

// Type aliases to ensure types are accessible
type ChangeData = dbpkg.ChangeData
type LabelAssociation = dbpkg.LabelAssociation

// CSV column layout for change exports:
// number, title, author, branch, labels (semicolon-separated), body
const (
	colNumber = iota
	colTitle
	colAuthor
	colBranch
	colLabels
	colBody
)

// ImportStats tracks statistics for a change import
type ImportStats struct {
	Imported        int // Total changes processed (new + existing)
	NewChanges      int // Newly inserted changes
	ExistingChanges int // Changes that already existed
	Autolabeled     int // Changes that received at least one autolabel
	Skipped         int
	HeaderSkipped   bool
	Errors          []string
	StartTime       time.Time
}

// row is one parsed CSV line waiting for its batch
type row struct {
	change ChangeData
	labels []string
}

// ImportCSV imports change records from a CSV file into the database.
// When rules is non-nil, the autolabeler runs against every record and
// matching labels are attached alongside the explicit ones.
// Malformed rows are skipped and counted, never fatal.
// Uses batched bulk inserts with pre-loaded id maps in the manner of
// the store layer.
func ImportCSV(database *dbpkg.DB, csvPath string, rules *config.RuleSet) (*ImportStats, error) {
	stats := &ImportStats{
		StartTime: time.Now(),
		Errors:    make([]string, 0),
	}
	logger := log.WithComponent("importer")

	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Allow variable number of fields per record
	reader.FieldsPerRecord = -1

	lineNum := 0
	batchSize := 1000
	commitInterval := 50000 // Commit periodically to keep transactions small

	// Start a transaction for the file
	tx, err := database.BeginTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Pre-load all existing change and label IDs into memory
	existingChangeMap, err := dbpkg.LoadAllChangeIDs(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing change IDs: %w", err)
	}
	existingLabelMap, err := dbpkg.LoadAllLabelIDs(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing label IDs: %w", err)
	}

	batch := make([]row, 0, batchSize)
	changesProcessed := 0

	// Process batch function - bulk inserts the changes, then resolves
	// label IDs (creating labels on first sight) and attaches them
	processBatch := func() error {
		if len(batch) == 0 {
			return nil
		}

		changes := make([]ChangeData, len(batch))
		for i, r := range batch {
			changes[i] = r.change
		}

		insertResult, err := database.BulkInsertChanges(tx, changes, existingChangeMap)
		if err != nil {
			return fmt.Errorf("failed to bulk insert changes: %w", err)
		}

		// Update existingChangeMap with newly inserted changes
		for number, id := range insertResult.ChangeMap {
			existingChangeMap[number] = id
		}

		stats.NewChanges += insertResult.NewCount
		stats.ExistingChanges += insertResult.ExistingCount

		associations := make([]LabelAssociation, 0, len(batch))
		for _, r := range batch {
			changeID, ok := existingChangeMap[r.change.Number]
			if !ok {
				// Should not happen, but skip if it does
				continue
			}
			for _, name := range r.labels {
				labelID, ok := existingLabelMap[name]
				if !ok {
					labelID, err = dbpkg.GetOrCreateLabelTx(tx, name)
					if err != nil {
						return fmt.Errorf("failed to create label %s: %w", name, err)
					}
					existingLabelMap[name] = labelID
				}
				associations = append(associations, LabelAssociation{
					ChangeID: changeID,
					LabelID:  labelID,
				})
			}
		}

		if len(associations) > 0 {
			if err := database.BulkAddLabelsToChanges(tx, associations); err != nil {
				return fmt.Errorf("failed to bulk add labels: %w", err)
			}
		}

		changesProcessed += len(batch)
		stats.Imported += len(batch)

		// Commit periodically to keep the transaction bounded
		if changesProcessed >= commitInterval {
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit transaction: %w", err)
			}
			tx, err = database.BeginTransaction()
			if err != nil {
				return fmt.Errorf("failed to begin new transaction: %w", err)
			}
			changesProcessed = 0
		}

		batch = batch[:0] // Reset batch
		return nil
	}

	// Read and process the CSV
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				if err := processBatch(); err != nil {
					stats.Errors = append(stats.Errors, fmt.Sprintf("batch processing error: %v", err))
				}
				break
			}
			stats.Errors = append(stats.Errors, fmt.Sprintf("line %d: %v", lineNum+1, err))
			lineNum++
			continue
		}

		lineNum++

		if len(record) == 0 {
			stats.Skipped++
			continue
		}

		// Check if this looks like a header row
		if !stats.HeaderSkipped && isHeaderRow(record[0]) {
			stats.HeaderSkipped = true
			stats.Skipped++
			continue
		}

		r, err := parseRow(record)
		if err != nil {
			stats.Skipped++
			errorMsg := fmt.Sprintf("line %d: skipped row: %v", lineNum, err)
			stats.Errors = append(stats.Errors, errorMsg)
			logger.Warn().Int("line", lineNum).Err(err).Msg("skipped malformed row")
			continue
		}

		// Run the autolabeler against the parsed record
		if rules != nil {
			rec := models.ChangeRecord{
				Number: r.change.Number,
				Title:  r.change.Title,
				Author: r.change.Author,
				Branch: r.change.Branch,
				Body:   r.change.Body,
				Labels: r.labels,
			}
			if added := classifier.Autolabel(rules, rec); len(added) > 0 {
				r.labels = append(r.labels, added...)
				stats.Autolabeled++
			}
		}

		batch = append(batch, r)

		if len(batch) >= batchSize {
			if err := processBatch(); err != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("batch processing error: %v", err))
				// Continue processing despite error
			}
		}
	}

	// Commit the final transaction
	if changesProcessed > 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit final transaction: %w", err)
		}
	}

	return stats, nil
}

// parseRow turns one CSV record into a change plus its explicit labels
func parseRow(record []string) (row, error) {
	var r row

	number, err := strconv.Atoi(strings.TrimSpace(field(record, colNumber)))
	if err != nil {
		return r, fmt.Errorf("bad pull-request number %q", field(record, colNumber))
	}

	title := strings.TrimSpace(field(record, colTitle))
	author := strings.TrimSpace(field(record, colAuthor))
	if err := ValidateChange(number, title, author); err != nil {
		return r, err
	}

	r.change = ChangeData{
		Number: number,
		Title:  title,
		Author: author,
		Branch: strings.TrimSpace(field(record, colBranch)),
		Body:   strings.TrimSpace(field(record, colBody)),
	}

	for _, name := range strings.Split(field(record, colLabels), ";") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := ValidateLabelName(name); err != nil {
			return r, fmt.Errorf("label %q: %w", name, err)
		}
		r.labels = append(r.labels, name)
	}

	return r, nil
}

// field returns the i-th column or "" when the row is short
func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return record[i]
}

// CountCSVLines counts the total number of lines in a CSV file
func CountCSVLines(csvPath string) (int, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	count := 0
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// isHeaderRow checks if the first column value looks like a header
func isHeaderRow(firstCol string) bool {
	firstColLower := strings.ToLower(strings.TrimSpace(firstCol))

	headerKeywords := []string{
		"number", "pr", "pr number", "pull request",
		"#", "id", "change", "nr",
	}

	for _, keyword := range headerKeywords {
		if firstColLower == keyword {
			return true
		}
	}

	// A first column that doesn't parse as a number is a header too
	if _, err := strconv.Atoi(firstColLower); err != nil && firstColLower != "" {
		return true
	}

	return false
}
