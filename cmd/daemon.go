package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/revise/internal/config"
	"github.com/manav03panchal/revise/internal/daemon"
	"github.com/manav03panchal/revise/internal/output"
)

// Daemon command flags.
var (
	daemonStartFlagForeground bool
	daemonLogsFlagTail        int
	daemonLogsFlagFollow      bool
	daemonInstallFlagForce    bool
)

// daemonAnnotations keep daemon commands off the database: the daemon
// opens it for each tick only.
var daemonAnnotations = map[string]string{skipRuntime: "true"}

// daemonCmd represents the daemon command.
var daemonCmd = &cobra.Command{
	Use:         "daemon [command]",
	Aliases:     []string{"bg", "service"},
	Short:       "Manage the background reminder daemon",
	Annotations: daemonAnnotations,
	Long: `Manage the background daemon that delivers revision reminders.

On every revision day the daemon sends a reminder to each enabled webhook
at notify.hour, and, when notify.digest_enabled is set, a morning digest
of everything due. Reminders missed while the machine slept are sent as
one catch-up message.

Examples:
  revise daemon start
  revise daemon status
  revise daemon stop
  revise daemon logs --tail 20`,
	RunE: runDaemonStatus,
}

// daemonStartCmd starts the daemon.
var daemonStartCmd = &cobra.Command{
	Use:         "start",
	Short:       "Start the background daemon",
	Annotations: daemonAnnotations,
	Long: `Start the reminder daemon.

Examples:
  revise daemon start           # Start in background
  revise daemon start --foreground`,
	RunE: runDaemonStart,
}

// daemonStopCmd stops the daemon.
var daemonStopCmd = &cobra.Command{
	Use:         "stop",
	Short:       "Stop the background daemon",
	Annotations: daemonAnnotations,
	RunE:        runDaemonStop,
}

// daemonStatusCmd shows daemon status.
var daemonStatusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Show daemon status",
	Annotations: daemonAnnotations,
	RunE:        runDaemonStatus,
}

// daemonLogsCmd shows daemon logs.
var daemonLogsCmd = &cobra.Command{
	Use:         "logs",
	Short:       "View daemon logs",
	Annotations: daemonAnnotations,
	Long: `View the daemon log file.

Examples:
  revise daemon logs
  revise daemon logs --tail 50
  revise daemon logs --follow`,
	RunE: runDaemonLogs,
}

// daemonInstallCmd installs the daemon as a system service.
var daemonInstallCmd = &cobra.Command{
	Use:         "install",
	Short:       "Install daemon as a system service",
	Annotations: daemonAnnotations,
	Long: `Install the reminder daemon as a service that starts automatically on login.

On macOS, this creates a launchd agent in ~/Library/LaunchAgents.
On Linux, this creates a systemd user service in ~/.config/systemd/user.

Examples:
  revise daemon install
  revise daemon install --force   # Reinstall if already installed`,
	RunE: runDaemonInstall,
}

// daemonUninstallCmd uninstalls the daemon system service.
var daemonUninstallCmd = &cobra.Command{
	Use:         "uninstall",
	Short:       "Uninstall daemon system service",
	Annotations: daemonAnnotations,
	Long: `Remove the reminder daemon from system services.

This stops the service and removes the service configuration.`,
	RunE: runDaemonUninstall,
}

func init() {
	daemonStartCmd.Flags().BoolVar(&daemonStartFlagForeground, "foreground", false,
		"Run in foreground (don't daemonize)")

	daemonLogsCmd.Flags().IntVarP(&daemonLogsFlagTail, "tail", "n", 20,
		"Number of lines to show")
	daemonLogsCmd.Flags().BoolVar(&daemonLogsFlagFollow, "follow", false,
		"Follow log output (like tail -f)")

	daemonInstallCmd.Flags().BoolVar(&daemonInstallFlagForce, "force", false,
		"Force reinstall if already installed")

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonLogsCmd)
	daemonCmd.AddCommand(daemonInstallCmd)
	daemonCmd.AddCommand(daemonUninstallCmd)

	rootCmd.AddCommand(daemonCmd)
}

func newDaemon() *daemon.Daemon {
	return daemon.New(runtimeOptions(config.Global), daemon.DefaultPaths())
}

// passthroughArgs repeats the global flags for the re-executed daemon.
func passthroughArgs() []string {
	var args []string
	if flagConfig != "" {
		args = append(args, "--config", flagConfig)
	}
	if flagDB != "" {
		args = append(args, "--db", flagDB)
	}
	if flagDebug {
		args = append(args, "--debug")
	}
	return args
}

// runDaemonStart handles the daemon start command.
func runDaemonStart(cmd *cobra.Command, args []string) error {
	f := newFormatter()
	d := newDaemon()

	if d.IsRunning() {
		status := d.GetStatus()
		if f.Format == output.FormatJSON {
			return f.JSON(map[string]any{
				"status": "already_running",
				"pid":    status.PID,
			})
		}
		return fmt.Errorf("%w (PID: %d)", daemon.ErrAlreadyRunning, status.PID)
	}

	if daemonStartFlagForeground {
		if !config.Global.Notify.Enabled {
			f.Println("Warning: notify.enabled is off, no new reminders will be scheduled.")
		}
		f.Printf("Starting revise daemon (foreground mode)...\n")
		return d.Start(cmd.Context())
	}

	pid, err := d.StartBackground(passthroughArgs()...)
	if err != nil {
		return err
	}

	if f.Format == output.FormatJSON {
		return f.JSON(map[string]any{
			"status": "started",
			"pid":    pid,
			"log":    d.Paths().Log(),
		})
	}
	f.Println("Starting revise daemon...")
	f.Printf("Daemon started (PID: %d)\n", pid)
	f.Printf("Logs: %s\n", d.Paths().Log())
	return nil
}

// runDaemonStop handles the daemon stop command.
func runDaemonStop(cmd *cobra.Command, args []string) error {
	f := newFormatter()
	d := newDaemon()

	status := d.GetStatus()
	if !status.Running {
		if f.Format == output.FormatJSON {
			return f.JSON(map[string]any{"status": "not_running"})
		}
		f.Println("Daemon is not running")
		return nil
	}

	if f.Format != output.FormatJSON {
		f.Println("Stopping revise daemon...")
	}

	if err := d.Stop(); err != nil {
		return err
	}

	if f.Format == output.FormatJSON {
		return f.JSON(map[string]any{"status": "stopped", "pid": status.PID})
	}
	f.Printf("Daemon stopped (was PID: %d)\n", status.PID)
	return nil
}

// runDaemonStatus handles the daemon status command.
func runDaemonStatus(cmd *cobra.Command, args []string) error {
	f := newFormatter()
	status := newDaemon().GetStatus()

	if f.Format == output.FormatJSON {
		return f.JSON(status)
	}

	cli := output.NewCLIFormatter(f)
	cli.Title("Revise Daemon Status")
	f.Println("")

	if !status.Running {
		f.Printf("  Status:    stopped\n")
		f.Println("")
		f.Println("Start with: revise daemon start")
		return nil
	}

	f.Printf("  Status:    running\n")
	f.Printf("  PID:       %d\n", status.PID)
	f.Printf("  Uptime:    %s\n", status.Uptime)
	if h := status.Health; h != nil {
		f.Printf("  Health:    %s\n", h.Status)
		f.Printf("  Pending:   %d redeliveries\n", h.PendingNotifications)
		for _, c := range h.Checks {
			if !c.Healthy {
				cli.Warning(fmt.Sprintf("%s: %s", c.Name, c.Error))
			}
		}
	}
	if m := status.Metrics; m != nil {
		f.Printf("  Reminders: %d sent, %d caught up\n", m.AlarmsDeliveredTotal, m.AlarmsCaughtUpTotal)
		f.Printf("  Digests:   %d sent\n", m.DigestsSentTotal)
		if m.LastTick != nil {
			f.Printf("  Last tick: %s\n", output.FormatAgo(*m.LastTick, time.Now()))
		}
		if m.LastError != "" {
			f.Printf("  Last error: %s\n", m.LastError)
		}
	}

	return nil
}

// runDaemonLogs handles the daemon logs command.
func runDaemonLogs(cmd *cobra.Command, args []string) error {
	f := newFormatter()
	logPath := daemon.DefaultPaths().Log()

	if _, err := os.Stat(logPath); errors.Is(err, os.ErrNotExist) {
		f.Println("No log file found.")
		f.Printf("Log path: %s\n", logPath)
		return nil
	}

	lines, err := tailFile(logPath, daemonLogsFlagTail)
	if err != nil {
		return err
	}
	for _, line := range lines {
		f.Println(line)
	}

	if daemonLogsFlagFollow {
		return followLogs(cmd, f, logPath)
	}
	return nil
}

// tailFile reads the last n lines from a file.
func tailFile(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// followLogs prints lines appended to the log until the command's context
// is cancelled.
func followLogs(cmd *cobra.Command, f *output.Formatter, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	reader := bufio.NewReader(file)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		for {
			line, err := reader.ReadString('\n')
			if len(line) > 0 {
				f.Print(line)
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
		}

		select {
		case <-cmd.Context().Done():
			return nil
		case <-ticker.C:
		}
	}
}

// runDaemonInstall handles the daemon install command.
func runDaemonInstall(cmd *cobra.Command, args []string) error {
	f := newFormatter()
	isJSON := f.Format == output.FormatJSON

	mgr, err := daemon.NewServiceManager(daemon.DefaultPaths())
	if err != nil {
		return err
	}

	if mgr.IsInstalled() && !daemonInstallFlagForce {
		if isJSON {
			return f.JSON(map[string]any{"status": "already_installed"})
		}
		f.Println("Service is already installed.")
		f.Println("Use --force to reinstall.")
		return nil
	}

	if mgr.IsInstalled() && daemonInstallFlagForce {
		if !isJSON {
			f.Println("Removing existing service...")
		}
		if err := mgr.Uninstall(); err != nil {
			return fmt.Errorf("failed to remove existing service: %w", err)
		}
	}

	if !isJSON {
		f.Println("Installing revise daemon as system service...")
	}

	if err := mgr.Install(); err != nil {
		return err
	}

	if isJSON {
		return f.JSON(map[string]any{
			"status":  "installed",
			"path":    mgr.ServicePath(),
			"message": "Service will start automatically on login",
		})
	}

	cli := output.NewCLIFormatter(f)
	f.Println("")
	cli.Success("Service installed successfully")
	f.Printf("  %s\n", mgr.ServicePath())
	f.Println("")
	f.Println("The daemon will now start automatically when you log in.")
	f.Println("To start it now: revise daemon start")
	f.Println("To remove: revise daemon uninstall")

	return nil
}

// runDaemonUninstall handles the daemon uninstall command.
func runDaemonUninstall(cmd *cobra.Command, args []string) error {
	f := newFormatter()
	isJSON := f.Format == output.FormatJSON

	mgr, err := daemon.NewServiceManager(daemon.DefaultPaths())
	if err != nil {
		return err
	}

	if !mgr.IsInstalled() {
		if isJSON {
			return f.JSON(map[string]any{"status": "not_installed"})
		}
		f.Println("Service is not installed.")
		return nil
	}

	d := newDaemon()
	if d.IsRunning() {
		if !isJSON {
			f.Println("Stopping running daemon...")
		}
		// Continue anyway - we want to uninstall
		if err := d.Stop(); err != nil && flagDebug {
			f.Printf("[DEBUG] Warning: failed to stop daemon: %v\n", err)
		}
	}

	if !isJSON {
		f.Println("Uninstalling revise daemon service...")
	}

	if err := mgr.Uninstall(); err != nil {
		return err
	}

	if isJSON {
		return f.JSON(map[string]any{"status": "uninstalled"})
	}

	f.Println("")
	output.NewCLIFormatter(f).Success("Service uninstalled successfully")
	f.Println("")
	f.Println("The daemon will no longer start automatically.")
	f.Println("To reinstall: revise daemon install")

	return nil
}
