package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"release-draft-maker/internal/models"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// ChangeData represents a change record to be inserted
type ChangeData struct {
	Number int
	Title  string
	Author string
	Branch string
	Body   string
}

// LabelAssociation represents a label to be attached to a change
type LabelAssociation struct {
	ChangeID int64
	LabelID  int64
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	// Optimize SQLite for bulk imports
	if err := db.optimizeForBulkInsert(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to optimize database: %w", err)
	}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// optimizeForBulkInsert sets SQLite pragmas for better bulk insert performance
func (db *DB) optimizeForBulkInsert() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",   // Write-Ahead Logging for better concurrency
		"PRAGMA synchronous = NORMAL", // Faster than FULL, still safe
		"PRAGMA temp_store = MEMORY",  // Store temp tables in memory
		"PRAGMA foreign_keys = ON",    // Keep foreign keys enabled
	}

	for _, pragma := range pragmas {
		if _, err := db.conn.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the database tables if they don't exist
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		number INTEGER UNIQUE NOT NULL,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		branch TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_changes_number ON changes(number);

	CREATE TABLE IF NOT EXISTS labels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS change_labels (
		change_id INTEGER NOT NULL,
		label_id INTEGER NOT NULL,
		PRIMARY KEY (change_id, label_id),
		FOREIGN KEY (change_id) REFERENCES changes(id) ON DELETE CASCADE,
		FOREIGN KEY (label_id) REFERENCES labels(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_change_labels_change_id ON change_labels(change_id);
	CREATE INDEX IF NOT EXISTS idx_change_labels_label_id ON change_labels(label_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// GetChangeID gets the ID of a change by its pull-request number
func (db *DB) GetChangeID(number int) (int64, error) {
	var id int64
	err := db.conn.QueryRow(
		"SELECT id FROM changes WHERE number = ?",
		number,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("change not found: #%d", number)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query change: %w", err)
	}
	return id, nil
}

// GetOrCreateLabel gets a label ID, creating the label if it doesn't exist.
// This version uses db.conn and should NOT be called inside a transaction.
func (db *DB) GetOrCreateLabel(name string) (int64, error) {
	var labelID int64
	err := db.conn.QueryRow(
		"SELECT id FROM labels WHERE name = ?",
		name,
	).Scan(&labelID)

	if err == sql.ErrNoRows {
		result, err := db.conn.Exec(
			"INSERT INTO labels (name) VALUES (?)",
			name,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to create label: %w", err)
		}
		labelID, err = result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get label id: %w", err)
		}
		return labelID, nil
	} else if err != nil {
		return 0, fmt.Errorf("failed to query label: %w", err)
	}

	return labelID, nil
}

// GetOrCreateLabelTx is the transactional variant of GetOrCreateLabel
func GetOrCreateLabelTx(tx *sql.Tx, name string) (int64, error) {
	var labelID int64
	err := tx.QueryRow(
		"SELECT id FROM labels WHERE name = ?",
		name,
	).Scan(&labelID)

	if err == sql.ErrNoRows {
		result, err := tx.Exec(
			"INSERT INTO labels (name) VALUES (?)",
			name,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to create label: %w", err)
		}
		labelID, err = result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get label id: %w", err)
		}
		return labelID, nil
	} else if err != nil {
		return 0, fmt.Errorf("failed to query label: %w", err)
	}

	return labelID, nil
}

// AddLabelToChange attaches a label to a change
func (db *DB) AddLabelToChange(changeID, labelID int64) error {
	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO change_labels (change_id, label_id) VALUES (?, ?)",
		changeID, labelID,
	)
	if err != nil {
		return fmt.Errorf("failed to add label to change: %w", err)
	}
	return nil
}

// BeginTransaction starts a new transaction
func (db *DB) BeginTransaction() (*sql.Tx, error) {
	return db.conn.Begin()
}

// LoadAllChangeIDs loads all existing change IDs into a map for fast lookup.
// Returns a map of pull-request number -> changeID.
func LoadAllChangeIDs(tx *sql.Tx) (map[int]int64, error) {
	changeMap := make(map[int]int64)

	rows, err := tx.Query("SELECT id, number FROM changes")
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var number int
		if err := rows.Scan(&id, &number); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		changeMap[number] = id
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating changes: %w", err)
	}

	return changeMap, nil
}

// LoadAllLabelIDs loads all existing label IDs into a map for fast lookup.
// Returns a map of label name -> labelID.
func LoadAllLabelIDs(tx *sql.Tx) (map[string]int64, error) {
	labelMap := make(map[string]int64)

	rows, err := tx.Query("SELECT id, name FROM labels")
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labelMap[name] = id
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating labels: %w", err)
	}

	return labelMap, nil
}

// BulkInsertResult contains the results of a bulk insert operation
type BulkInsertResult struct {
	ChangeMap     map[int]int64
	NewCount      int // Number of newly inserted changes
	ExistingCount int // Number of changes that already existed
}

// BulkInsertChanges inserts multiple change records efficiently.
// existingChangeMap should contain all existing change IDs (pre-loaded).
// Returns a map of number -> changeID and counts of new vs existing changes.
func (db *DB) BulkInsertChanges(tx *sql.Tx, changes []ChangeData, existingChangeMap map[int]int64) (*BulkInsertResult, error) {
	if len(changes) == 0 {
		return &BulkInsertResult{ChangeMap: make(map[int]int64)}, nil
	}

	result := &BulkInsertResult{
		ChangeMap: make(map[int]int64, len(changes)),
	}

	// Separate new changes from existing ones; dedup within the batch
	newChanges := make([]ChangeData, 0, len(changes))
	seenInBatch := make(map[int]bool)

	for _, c := range changes {
		if id, exists := existingChangeMap[c.Number]; exists {
			result.ChangeMap[c.Number] = id
			result.ExistingCount++
			continue
		}
		if seenInBatch[c.Number] {
			continue
		}
		newChanges = append(newChanges, c)
		seenInBatch[c.Number] = true
	}

	result.NewCount = len(newChanges)
	if len(newChanges) == 0 {
		return result, nil
	}

	// SQLite supports up to 999 parameters, so we may need to chunk
	const maxParams = 999
	const valuesPerRow = 5 // number, title, author, branch, body
	const maxRowsPerInsert = maxParams / valuesPerRow

	for i := 0; i < len(newChanges); i += maxRowsPerInsert {
		end := i + maxRowsPerInsert
		if end > len(newChanges) {
			end = len(newChanges)
		}
		chunk := newChanges[i:end]

		query := "INSERT INTO changes (number, title, author, branch, body) VALUES "
		args := make([]interface{}, 0, len(chunk)*valuesPerRow)

		for j, c := range chunk {
			if j > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?)"
			args = append(args, c.Number, c.Title, c.Author, c.Branch, c.Body)
		}

		// RETURNING id gives us the IDs in insert order
		query += " RETURNING id"

		rows, err := tx.Query(query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to bulk insert changes: %w", err)
		}

		idx := 0
		for rows.Next() {
			if idx >= len(chunk) {
				rows.Close()
				return nil, fmt.Errorf("retrieved more IDs than inserted rows")
			}

			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan returned id: %w", err)
			}

			result.ChangeMap[chunk[idx].Number] = id
			idx++
		}
		rows.Close()

		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating returned ids: %w", err)
		}

		if idx != len(chunk) {
			return nil, fmt.Errorf("expected %d IDs, got %d", len(chunk), idx)
		}
	}

	return result, nil
}

// BulkAddLabelsToChanges attaches multiple labels efficiently using bulk INSERT.
// Uses INSERT OR IGNORE to handle duplicates idempotently.
func (db *DB) BulkAddLabelsToChanges(tx *sql.Tx, associations []LabelAssociation) error {
	if len(associations) == 0 {
		return nil
	}

	const maxParams = 999
	const valuesPerRow = 2 // change_id and label_id
	const maxRowsPerInsert = maxParams / valuesPerRow

	for i := 0; i < len(associations); i += maxRowsPerInsert {
		end := i + maxRowsPerInsert
		if end > len(associations) {
			end = len(associations)
		}
		chunk := associations[i:end]

		query := "INSERT OR IGNORE INTO change_labels (change_id, label_id) VALUES "
		args := make([]interface{}, 0, len(chunk)*valuesPerRow)

		for j, assoc := range chunk {
			if j > 0 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, assoc.ChangeID, assoc.LabelID)
		}

		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to bulk insert label associations: %w", err)
		}
	}

	return nil
}

// GetAllChanges returns all change records with their associated labels,
// ordered by pull-request number
func (db *DB) GetAllChanges() ([]models.ChangeRecord, error) {
	query := `
		SELECT c.id, c.number, c.title, c.author, c.branch, c.body,
		       COALESCE(GROUP_CONCAT(l.name), '') as labels
		FROM changes c
		LEFT JOIN change_labels cl ON c.id = cl.change_id
		LEFT JOIN labels l ON cl.label_id = l.id
		GROUP BY c.id
		ORDER BY c.number
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	var changes []models.ChangeRecord
	for rows.Next() {
		var rec models.ChangeRecord
		var labelsStr string
		if err := rows.Scan(&rec.ID, &rec.Number, &rec.Title, &rec.Author, &rec.Branch, &rec.Body, &labelsStr); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Labels = splitLabels(labelsStr)
		changes = append(changes, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return changes, nil
}

// splitLabels splits SQLite's comma-separated GROUP_CONCAT output
func splitLabels(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	labels := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	return labels
}
