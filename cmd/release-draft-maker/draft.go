package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"release-draft-maker/internal/classifier"
	"release-draft-maker/internal/composer"
	"release-draft-maker/internal/config"
	"release-draft-maker/internal/db"

	"github.com/spf13/cobra"
)

var (
	draftRulesPath string
	draftPrevTag   string
	draftOutput    string
)

func newDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Compose a release draft from the stored changes",
		Long:  "Load the rules file, fetch all stored change records, autolabel any unlabeled ones, and compose a release draft with a resolved version. The draft is written to stdout unless --output is given.",
		RunE:  runDraft,
	}

	cmd.Flags().StringVarP(&draftRulesPath, "config", "c", "", "Path to the rules file (YAML)")
	cmd.Flags().StringVar(&draftPrevTag, "prev-tag", "", "Previous release tag (empty means no prior release)")
	cmd.Flags().StringVarP(&draftOutput, "output", "o", "", "Write the draft to this file instead of stdout")
	cmd.MarkFlagRequired("config")

	return cmd
}

func runDraft(cmd *cobra.Command, args []string) error {
	// 1. Load and validate the rules
	rules, err := config.Load(draftRulesPath)
	if err != nil {
		return err
	}

	// 2. Fetch all stored changes
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	changes, err := database.GetAllChanges()
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return fmt.Errorf("no changes in database %s, run import first", dbPath)
	}

	// 3. Autolabel records that came in without labels
	for i := range changes {
		if added := classifier.Autolabel(rules, changes[i]); len(added) > 0 {
			changes[i].Labels = append(changes[i].Labels, added...)
		}
	}

	// 4. Compose and render
	draft, err := composer.Compose(rules, changes, draftPrevTag)
	if err != nil {
		return err
	}
	body := composer.Markdown(draft)

	if draftOutput == "" {
		fmt.Print(body)
	} else {
		outputDir := filepath.Dir(draftOutput)
		if outputDir != "" && outputDir != "." {
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		if err := os.WriteFile(draftOutput, []byte(body), 0644); err != nil {
			return fmt.Errorf("failed to write draft: %w", err)
		}
		fmt.Printf("Wrote draft for %s (%d changes, %s bump) to %s\n",
			draft.Tag, len(changes), draft.Severity, draftOutput)
	}

	return nil
}

// parseNumber parses a pull-request number argument
func parseNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid pull-request number %q", arg)
	}
	return n, nil
}
