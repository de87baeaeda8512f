package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/revise/internal/api"
	"github.com/manav03panchal/revise/internal/daemon"
	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/scheduler"
)

// Serve command flags.
var (
	serveFlagAddr      string
	serveFlagReminders bool
)

// serveCmd serves the local HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local JSON API",
	Long: `Serve topics, strategies and revisions over a JSON HTTP API on
localhost, for editor plugins and widgets.

The API holds the database open, so the daemon cannot run at the same
time. Pass --reminders to deliver reminders from this process instead.

Routes:
  GET    /api/topics                 list topics
  POST   /api/topics                 add a topic
  GET    /api/topics/{ref}           show a topic
  PATCH  /api/topics/{ref}           rename a topic
  DELETE /api/topics/{ref}           delete a topic
  POST   /api/topics/{ref}/revise    mark revised
  PUT    /api/topics/{ref}/strategy  change strategy
  GET    /api/topics/{ref}/history   revision instances
  GET    /api/due?day=               due and overdue
  GET    /api/calendar?range=        instances over a range
  GET    /api/strategies             list strategies
  POST   /api/strategies             add a strategy
  DELETE /api/strategies/{ref}       delete a strategy

Examples:
  revise serve
  revise serve --addr 127.0.0.1:8080 --reminders`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlagAddr, "addr", "",
		"Listen address (default api.addr)")
	serveCmd.Flags().BoolVar(&serveFlagReminders, "reminders", false,
		"Deliver reminders from this process")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serveFlagAddr
	if addr == "" {
		addr = ctx.Config.API.Addr
	}

	c, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveFlagReminders {
		if daemon.NewPIDFile(daemon.DefaultPaths().PID()).IsRunning() {
			logging.Warn("daemon is running, reminders may be delivered twice")
		}
		sched := scheduler.NewScheduler(ctx.SharedOpener(), scheduler.WithConfig(ctx.Config))
		if err := sched.Start(c); err != nil {
			return err
		}
		defer sched.Stop()
	}

	if !ctx.IsJSON() {
		ctx.Formatter.Printf("Serving on http://%s (Ctrl+C to stop)\n", addr)
	}
	return api.New(ctx.Engine).Serve(c, addr)
}
