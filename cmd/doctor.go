package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/revise/internal/config"
	"github.com/manav03panchal/revise/internal/daemon"
	"github.com/manav03panchal/revise/internal/output"
	"github.com/manav03panchal/revise/internal/runtime"
	"github.com/manav03panchal/revise/internal/storage"
)

// Doctor command flags.
var (
	doctorFlagRepair bool
)

// doctorCmd checks the installation.
var doctorCmd = &cobra.Command{
	Use:         "doctor",
	Aliases:     []string{"check"},
	Short:       "Check configuration, database and daemon",
	Annotations: map[string]string{skipRuntime: "true"},
	Long: `Check the configuration, the database and the daemon, and report
anything that needs attention.

With --repair a corrupted database is backed up and compacted.

Examples:
  revise doctor
  revise doctor --repair`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFlagRepair, "repair", false,
		"Back up and compact a corrupted database")

	rootCmd.AddCommand(doctorCmd)
}

// DoctorReport is the result of `revise doctor`.
type DoctorReport struct {
	ConfigFile   string                  `json:"config_file"`
	ConfigFound  bool                    `json:"config_found"`
	DatabasePath string                  `json:"database_path"`
	Database     *storage.RecoveryStatus `json:"database"`
	DiskWarning  string                  `json:"disk_warning,omitempty"`
	Topics       int                     `json:"topics"`
	Strategies   int                     `json:"strategies"`
	Webhooks     int                     `json:"webhooks_enabled"`
	Notify       bool                    `json:"notify_enabled"`
	Daemon       *daemon.Status          `json:"daemon"`
	Repaired     bool                    `json:"repaired,omitempty"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	c := cmd.Context()
	cfg := config.Global

	report := &DoctorReport{
		ConfigFile: configFile(),
		Notify:     cfg.Notify.Enabled,
		Daemon:     newDaemon().GetStatus(),
	}
	if _, err := os.Stat(report.ConfigFile); err == nil {
		report.ConfigFound = true
	}

	opts := runtimeOptions(cfg)
	report.DatabasePath = opts.DatabasePath()
	rc, err := runtime.New(c, opts)
	if err != nil {
		if !storage.IsDatabaseCorrupted(err) {
			return err
		}
		report.Database = &storage.RecoveryStatus{
			Corrupted:   true,
			ErrorCount:  1,
			Errors:      []string{err.Error()},
			Recoverable: true,
		}
		return finishDoctor(report)
	}
	report.Database = storage.CheckDatabaseIntegrity(rc.DB)
	report.DiskWarning = storage.CheckDiskSpaceWarning(report.DatabasePath)
	report.Webhooks = rc.Dispatcher.CountEnabledWebhooks()
	if snap, err := rc.Engine.Snapshot(c); err == nil {
		report.Topics = len(snap.Topics)
		report.Strategies = len(snap.Strategies)
	}
	if err := rc.Close(); err != nil {
		return err
	}
	return finishDoctor(report)
}

// finishDoctor repairs the database if asked and prints the report. The
// database must be closed.
func finishDoctor(report *DoctorReport) error {
	onDisk := report.DatabasePath != "" && report.DatabasePath != runtime.MemoryPath
	if doctorFlagRepair && report.Database.Corrupted && onDisk {
		if err := storage.AttemptRecovery(report.DatabasePath); err != nil {
			return err
		}
		report.Repaired = true
	}

	f := newFormatter()
	if f.Format == output.FormatJSON {
		return f.JSON(report)
	}
	printDoctorReport(output.NewCLIFormatter(f), report)
	return nil
}

func printDoctorReport(cli *output.CLIFormatter, r *DoctorReport) {
	cli.Title("Revise Doctor")
	cli.Println()

	if r.ConfigFound {
		cli.Success("Config: " + r.ConfigFile)
	} else {
		cli.Muted("  Config: defaults (" + r.ConfigFile + " not found)")
	}

	switch {
	case r.Database.Healthy:
		cli.Success("Database: " + r.DatabasePath)
	case r.Repaired:
		cli.Warning("Database repaired: " + r.DatabasePath)
	default:
		cli.Error(fmt.Sprintf("Database: %d problems in %s", r.Database.ErrorCount, r.DatabasePath))
		for _, e := range r.Database.Errors {
			cli.Printf("    %s\n", e)
		}
		if r.Database.Recoverable {
			cli.Muted("  Run 'revise doctor --repair' to back up and compact it.")
		}
	}
	for _, w := range r.Database.Warnings {
		cli.Warning(w)
	}
	if r.DiskWarning != "" {
		cli.Warning(r.DiskWarning)
	}
	cli.Printf("  %d topics, %d strategies\n", r.Topics, r.Strategies)

	switch {
	case !r.Notify:
		cli.Muted("  Reminders: off (notify.enabled)")
	case r.Webhooks == 0:
		cli.Warning("Reminders: on, but no webhook is enabled")
	default:
		cli.Success(fmt.Sprintf("Reminders: %d webhooks", r.Webhooks))
	}

	switch {
	case r.Daemon.Running:
		cli.Success(fmt.Sprintf("Daemon: running (PID %d, up %s)", r.Daemon.PID, r.Daemon.Uptime))
	case r.Notify:
		cli.Warning("Daemon: stopped, reminders will not be delivered")
	default:
		cli.Muted("  Daemon: stopped")
	}
}
