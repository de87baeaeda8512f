package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/sheet"
	"github.com/manav03panchal/revise/internal/storage"
)

// Export command flags.
var (
	exportFlagFormat string
	exportFlagOutput string
)

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:     "export",
	Aliases: []string{"backup", "dump"},
	Short:   "Export the schedule",
	Long: `Export every strategy, topic and revision.

Formats:
  json  Full backup, restored with 'revise import'
  csv   One row per topic
  xlsx  Workbook with Topics and Strategies sheets

The format defaults to the extension of --output, then json.

Examples:
  revise export -o backup.json
  revise export --as csv > topics.csv
  revise export -o revision-plan.xlsx`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFlagFormat, "as", "", "Export format: json, csv, xlsx")
	exportCmd.Flags().StringVarP(&exportFlagOutput, "output", "o", "", "Output file (stdout if omitted)")
	_ = exportCmd.RegisterFlagCompletionFunc("as", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "csv", "xlsx"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(exportCmd)
}

// exportFormat picks the export format from --as or the output extension.
func exportFormat() (string, error) {
	format := strings.ToLower(exportFlagFormat)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(exportFlagOutput)), ".")
	}
	switch format {
	case "", "json":
		return "json", nil
	case "csv", "xlsx":
		return format, nil
	}
	return "", apperrors.NewValidationError("as", format, "unsupported export format",
		"Use one of: json, csv, xlsx.")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := exportFormat()
	if err != nil {
		return err
	}
	if format == "xlsx" && exportFlagOutput == "" {
		return apperrors.NewValidationError("output", "", "xlsx export needs an output file",
			"Pass -o plan.xlsx.")
	}

	snap, err := ctx.Engine.Snapshot(cmd.Context())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch format {
	case "csv":
		err = sheet.WriteCSV(&buf, snap, ctx.Today())
	case "xlsx":
		err = sheet.WriteXLSX(&buf, snap, ctx.Today())
	default:
		err = sheet.WriteBackup(&buf, sheet.NewBackup(snap, ctx.Engine.Now()))
	}
	if err != nil {
		return err
	}

	if exportFlagOutput == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}

	if err := storage.SafeWrite(exportFlagOutput, buf.Bytes(), 0o600); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status":     "exported",
			"format":     format,
			"file":       exportFlagOutput,
			"strategies": len(snap.Strategies),
			"topics":     len(snap.Topics),
			"revisions":  len(snap.Revisions),
		})
	}
	cli := ctx.CLIFormatter()
	cli.Success("Exported to " + exportFlagOutput)
	cli.Printf("  %d topics, %d strategies, %d revisions\n",
		len(snap.Topics), len(snap.Strategies), len(snap.Revisions))
	return nil
}
