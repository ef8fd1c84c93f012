package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"release-draft-maker/internal/config"
	"release-draft-maker/internal/db"
	"release-draft-maker/internal/importer"
	"release-draft-maker/internal/log"

	"github.com/spf13/cobra"
)

var (
	dbPath   string
	logLevel string

	// Build information (injected by GoReleaser)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// FileImportStats tracks statistics for a single file import
type FileImportStats struct {
	Filename        string
	Imported        int // Total processed
	NewChanges      int // Newly inserted
	ExistingChanges int // Already existed
	Autolabeled     int
	Skipped         int
	HeaderSkipped   bool
	Errors          []string
	Duration        time.Duration
}

// TotalStats tracks overall import statistics
type TotalStats struct {
	FilesProcessed  int
	FilesSkipped    int
	ChangesImported int // Total processed
	NewChanges      int // Newly inserted changes
	ExistingChanges int // Changes that already existed
	Autolabeled     int
	ChangesSkipped  int
	TotalErrors     []string
	FileStats       []FileImportStats
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "release-draft-maker",
		Short: "Generate release-note drafts from merged changes",
		Long:  "A tool for managing merged-change records, label rules, and generating release-note drafts with resolved versions",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Configure(log.Config{Level: logLevel})
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "changes.db", "path to SQLite change database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level for diagnostics (debug, info, warn)")

	// Import command
	var rulesPath string
	importCmd := &cobra.Command{
		Use:   "import <folder>",
		Short: "Import change records from all CSV files in a folder",
		Long:  "Import merged-change records from all CSV files in the specified folder (columns: number, title, author, branch, labels, body). When --config is given, the autolabeler runs against every imported record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args, rulesPath)
		},
	}
	importCmd.Flags().StringVarP(&rulesPath, "config", "c", "", "rules file to run the autolabeler with during import")
	rootCmd.AddCommand(importCmd)

	// Label command
	labelCmd := &cobra.Command{
		Use:   "label <number> <label1> [label2...]",
		Short: "Attach labels to a change",
		Long:  "Attach one or more labels to a change by its pull-request number. Labels are created if they don't exist.",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runLabel,
	}
	rootCmd.AddCommand(labelCmd)

	// Draft command
	draftCmd := newDraftCmd()
	rootCmd.AddCommand(draftCmd)

	// Validate command
	validateCmd := &cobra.Command{
		Use:   "validate <rules.yaml>",
		Short: "Validate a rules file",
		Long:  "Load and validate a rules file, reporting configuration and pattern errors.",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	rootCmd.AddCommand(validateCmd)

	// Split XLSX command
	splitXlsxCmd := &cobra.Command{
		Use:   "split-xlsx <xlsx-file> <output-dir>",
		Short: "Split a change workbook into CSV files (one per sheet)",
		Long:  "Splits an Excel (.xlsx) change workbook into separate CSV files, one for each sheet, ready for the import command. Only processes sheets where the first column appears to contain pull-request numbers.",
		Args:  cobra.ExactArgs(2),
		RunE:  runSplitXLSX,
	}
	rootCmd.AddCommand(splitXlsxCmd)

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("release-draft-maker version %s\n", version)
			fmt.Printf("commit: %s\n", commit)
			fmt.Printf("built at: %s\n", date)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, args []string, rulesPath string) error {
	startTime := time.Now()
	folderPath := args[0]

	// Load the rules file when the autolabeler was requested
	var rules *config.RuleSet
	if rulesPath != "" {
		var err error
		rules, err = config.Load(rulesPath)
		if err != nil {
			return err
		}
	}

	// Open database
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	// Read directory
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return fmt.Errorf("failed to read folder: %w", err)
	}

	// Find all CSV files
	var csvFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			csvFiles = append(csvFiles, entry.Name())
		}
	}

	if len(csvFiles) == 0 {
		return fmt.Errorf("no CSV files found in folder: %s", folderPath)
	}

	fmt.Printf("Found %d CSV file(s) to import\n", len(csvFiles))

	// Track overall statistics
	totalStats := TotalStats{
		TotalErrors: make([]string, 0),
		FileStats:   make([]FileImportStats, 0),
	}

	// Import each CSV file
	for _, csvFile := range csvFiles {
		csvPath := filepath.Join(folderPath, csvFile)

		// Count lines in file for display
		lineCount, err := importer.CountCSVLines(csvPath)
		if err != nil {
			// If we can't count lines, just proceed without the count
			fmt.Printf("\nImporting %s...\n", csvFile)
		} else {
			fmt.Printf("\nImporting %s (%d lines)...\n", csvFile, lineCount)
		}

		fileStartTime := time.Now()

		stats, err := importer.ImportCSV(database, csvPath, rules)
		if err != nil {
			fmt.Printf("Error importing %s: %v\n", csvFile, err)
			totalStats.FilesSkipped++
			totalStats.TotalErrors = append(totalStats.TotalErrors, fmt.Sprintf("%s: %v", csvFile, err))
			continue
		}

		fileDuration := time.Since(fileStartTime)
		totalStats.FilesProcessed++
		totalStats.ChangesImported += stats.Imported
		totalStats.NewChanges += stats.NewChanges
		totalStats.ExistingChanges += stats.ExistingChanges
		totalStats.Autolabeled += stats.Autolabeled
		totalStats.ChangesSkipped += stats.Skipped
		totalStats.TotalErrors = append(totalStats.TotalErrors, stats.Errors...)

		totalStats.FileStats = append(totalStats.FileStats, FileImportStats{
			Filename:        csvFile,
			Imported:        stats.Imported,
			NewChanges:      stats.NewChanges,
			ExistingChanges: stats.ExistingChanges,
			Autolabeled:     stats.Autolabeled,
			Skipped:         stats.Skipped,
			HeaderSkipped:   stats.HeaderSkipped,
			Errors:          stats.Errors,
			Duration:        fileDuration,
		})
	}

	// Print comprehensive summary report
	totalDuration := time.Since(startTime)
	printSummaryReport(&totalStats, totalDuration, len(csvFiles))

	return nil
}

func printSummaryReport(stats *TotalStats, totalDuration time.Duration, totalFiles int) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("IMPORT SUMMARY REPORT")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf("\nOverall Statistics:\n")
	fmt.Printf("  Total Files:           %d\n", totalFiles)
	fmt.Printf("  Files Processed:       %d\n", stats.FilesProcessed)
	fmt.Printf("  Files Skipped:         %d\n", stats.FilesSkipped)
	fmt.Printf("  Changes Processed:     %d\n", stats.ChangesImported)
	if stats.ExistingChanges > 0 {
		fmt.Printf("    - New Changes:       %d\n", stats.NewChanges)
		fmt.Printf("    - Existing Changes:  %d (already in database)\n", stats.ExistingChanges)
	} else {
		fmt.Printf("  New Changes:           %d\n", stats.NewChanges)
	}
	if stats.Autolabeled > 0 {
		fmt.Printf("  Autolabeled:           %d\n", stats.Autolabeled)
	}
	fmt.Printf("  Changes Skipped:       %d\n", stats.ChangesSkipped)
	fmt.Printf("  Total Runtime:         %v\n", totalDuration.Round(time.Second))

	if len(stats.FileStats) > 0 {
		fmt.Printf("\nPer-File Breakdown:\n")
		for _, fileStat := range stats.FileStats {
			fmt.Printf("  %s:\n", fileStat.Filename)
			fmt.Printf("    Processed: %d (New: %d, Existing: %d), Skipped: %d, Duration: %v\n",
				fileStat.Imported, fileStat.NewChanges, fileStat.ExistingChanges, fileStat.Skipped, fileStat.Duration.Round(time.Second))
			if fileStat.HeaderSkipped {
				fmt.Printf("    (Header row skipped)\n")
			}
			if len(fileStat.Errors) > 0 {
				fmt.Printf("    Errors: %d\n", len(fileStat.Errors))
			}
		}
	}

	if len(stats.TotalErrors) > 0 {
		fmt.Printf("\nErrors Encountered: %d\n", len(stats.TotalErrors))

		// Create error report file
		timestamp := time.Now().Format("20060102_150405")
		reportFilename := fmt.Sprintf("import_errors_%s.txt", timestamp)

		file, err := os.Create(reportFilename)
		if err != nil {
			fmt.Printf("    Failed to create error report file: %v\n", err)
			// Fallback to printing first 10
			limit := 10
			if len(stats.TotalErrors) < limit {
				limit = len(stats.TotalErrors)
			}
			for _, errStr := range stats.TotalErrors[:limit] {
				fmt.Printf("    - %s\n", errStr)
			}
			if len(stats.TotalErrors) > limit {
				fmt.Printf("    ... and %d more errors\n", len(stats.TotalErrors)-limit)
			}
		} else {
			defer file.Close()

			fmt.Fprintf(file, "IMPORT ERROR REPORT\n")
			fmt.Fprintf(file, "Generated: %s\n", time.Now().Format(time.RFC1123))
			fmt.Fprintf(file, "Total Errors: %d\n\n", len(stats.TotalErrors))

			for _, errStr := range stats.TotalErrors {
				fmt.Fprintf(file, "- %s\n", errStr)
			}

			fmt.Printf("    --> Full error list saved to: %s\n", reportFilename)

			// Still print a few for immediate feedback
			limit := 5
			if len(stats.TotalErrors) < limit {
				limit = len(stats.TotalErrors)
			}
			for i := 0; i < limit; i++ {
				fmt.Printf("    - %s\n", stats.TotalErrors[i])
			}
			if len(stats.TotalErrors) > limit {
				fmt.Printf("    ... (%d more errors in report file)\n", len(stats.TotalErrors)-limit)
			}
		}
	}

	fmt.Println(strings.Repeat("=", 80))
}

func runLabel(cmd *cobra.Command, args []string) error {
	number, err := parseNumber(args[0])
	if err != nil {
		return err
	}
	labels := args[1:]

	// Open database
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	changeID, err := database.GetChangeID(number)
	if err != nil {
		return err
	}

	// Add labels
	for _, name := range labels {
		if err := importer.ValidateLabelName(name); err != nil {
			return fmt.Errorf("invalid label %q: %w", name, err)
		}
		labelID, err := database.GetOrCreateLabel(name)
		if err != nil {
			return fmt.Errorf("failed to get or create label %s: %w", name, err)
		}
		if err := database.AddLabelToChange(changeID, labelID); err != nil {
			return fmt.Errorf("failed to add label %s to change: %w", name, err)
		}
	}

	fmt.Printf("Added %d label(s) to change #%d\n", len(labels), number)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s: OK\n", args[0])
	return nil
}

func runSplitXLSX(cmd *cobra.Command, args []string) error {
	return importer.SplitXLSX(args[0], args[1])
}
