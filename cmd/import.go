package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/revise/internal/sheet"
)

// Import command flags.
var (
	importFlagDryRun   bool
	importFlagForce    bool
	importFlagStrategy string
	importFlagSheet    string
)

// importCmd represents the import command.
var importCmd = &cobra.Command{
	Use:     "import FILE",
	Aliases: []string{"restore"},
	Short:   "Import topics or restore a backup",
	Long: `Import topics from a spreadsheet or restore a JSON backup.

A .json file is a backup made by 'revise export'. Records already present
are kept unless --force is given.

A .csv or .xlsx file needs a header row with a Name column. Strategy,
Created and Last revised columns are optional; topics whose name already
exists are skipped.

Examples:
  revise import backup.json
  revise import backup.json --force
  revise import topics.csv --strategy "Exam Prep"
  revise import plan.xlsx --sheet "Semester 2" --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importFlagDryRun, "dry-run", false, "Preview import without making changes")
	importCmd.Flags().BoolVar(&importFlagForce, "force", false, "Overwrite existing records when restoring a backup")
	importCmd.Flags().StringVarP(&importFlagStrategy, "strategy", "s", "", "Strategy for rows without one")
	importCmd.Flags().StringVar(&importFlagSheet, "sheet", "", "Worksheet to read (default Topics, then the first)")
	_ = importCmd.RegisterFlagCompletionFunc("strategy", completeStrategies)

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if strings.EqualFold(filepath.Ext(args[0]), ".json") {
		return runRestore(cmd, args[0])
	}

	result, err := sheet.ImportFile(cmd.Context(), ctx.Engine, args[0], sheet.ImportOptions{
		Sheet:    importFlagSheet,
		Strategy: importFlagStrategy,
		DryRun:   importFlagDryRun,
	})
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status":  "imported",
			"dry_run": importFlagDryRun,
			"result":  result,
		})
	}

	cli := ctx.CLIFormatter()
	verb := "Imported"
	if importFlagDryRun {
		verb = "Would import"
	}
	cli.Success(fmt.Sprintf("%s %d of %d topics", verb, result.Created, result.Processed))
	if result.Skipped > 0 {
		cli.Muted(fmt.Sprintf("  %d skipped (already exist)", result.Skipped))
	}
	for _, e := range result.Errors {
		cli.Warning(e)
	}
	return nil
}

func runRestore(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	backup, err := sheet.ReadBackup(f)
	if err != nil {
		return err
	}

	cli := ctx.CLIFormatter()
	if importFlagDryRun {
		if ctx.IsJSON() {
			return ctx.Formatter.JSON(map[string]any{
				"status":      "dry_run",
				"exported_at": backup.ExportedAt,
				"strategies":  len(backup.Strategies),
				"topics":      len(backup.Topics),
				"revisions":   len(backup.Revisions),
			})
		}
		cli.Title("Backup from " + backup.ExportedAt.Format("2006-01-02 15:04"))
		cli.Printf("  %d strategies, %d topics, %d revisions\n",
			len(backup.Strategies), len(backup.Topics), len(backup.Revisions))
		cli.Muted("Dry run: nothing was changed.")
		return nil
	}

	result, err := ctx.Engine.Restore(cmd.Context(), backup.Snapshot(), importFlagForce)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status": "restored",
			"result": result,
		})
	}
	cli.Success(fmt.Sprintf("Restored %d topics, %d strategies, %d revisions",
		result.Topics, result.Strategies, result.Revisions))
	if result.Skipped > 0 {
		cli.Muted(fmt.Sprintf("  %d records skipped (use --force to overwrite)", result.Skipped))
	}
	return nil
}
