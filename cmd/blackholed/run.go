package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/app-blackhole/internal/config"
	"github.com/user/app-blackhole/internal/core"
	"github.com/user/app-blackhole/internal/elevate"
	"github.com/user/app-blackhole/internal/killswitch"
	"github.com/user/app-blackhole/internal/logger"
	"github.com/user/app-blackhole/internal/metrics"
	"github.com/user/app-blackhole/internal/platform"
	"github.com/user/app-blackhole/internal/settings"
	"github.com/user/app-blackhole/internal/shell"
)

var (
	runTray      bool
	runConsole   bool
	runElevate   bool
	runNoMetrics bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the blocker until interrupted",
	Long: `Starts the blocker with the stored app list. SIGHUP reloads the list,
SIGINT and SIGTERM stop the blocker and exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		if !elevate.IsPrivileged() {
			if runElevate {
				fmt.Fprintln(cmd.ErrOrStderr(), "Not running as root, requesting elevation...")
				return elevate.RunAsAdmin()
			}
			return elevate.Require()
		}

		if err := logger.Init(cfg.LogDir); err != nil {
			return fmt.Errorf("failed to open log: %w", err)
		}
		defer logger.Close()
		logger.SetConsole(runConsole)
		logger.SetVerbose(verbose)
		logger.Info("Blocker starting, config %s", mgr.Path())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if runTray || cfg.Tray {
			return runWithTray(ctx, cfg)
		}

		d, err := newDaemon(cfg, shell.NewHeadless())
		if err != nil {
			return err
		}
		return d.Run(ctx)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runTray, "tray", false, "Show a system tray icon")
	runCmd.Flags().BoolVar(&runConsole, "console", false, "Mirror the log to stdout")
	runCmd.Flags().BoolVar(&runElevate, "elevate", false, "Re-launch through pkexec or sudo when not privileged")
	runCmd.Flags().BoolVar(&runNoMetrics, "no-metrics", false, "Do not serve metrics even if metrics.listen is set")
	rootCmd.AddCommand(runCmd)
}

func runWithTray(ctx context.Context, cfg *config.Config) error {
	tray := shell.NewTray()
	d, err := newDaemon(cfg, tray)
	if err != nil {
		return err
	}
	tray.OnStop = d.supervisor.Stop

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var runErr error
	tray.Run(func() {
		runErr = d.Run(ctx)
		tray.Quit()
	}, cancel)
	return runErr
}

// drainTimeout bounds how long shutdown waits for cancelled attempts to
// unwind before the protect rule goes away.
const drainTimeout = 5 * time.Second

// osFacility is the platform facility as the daemon sees it.
type osFacility interface {
	core.Facility
	Close() error
}

// daemon wires the supervisor to the OS facility, the settings store and
// the metrics endpoint.
type daemon struct {
	supervisor *core.Supervisor
	facility   osFacility
	store      *settings.Store
	registry   *prometheus.Registry
	listen     string
}

func newDaemon(cfg *config.Config, sh core.Shell) (*daemon, error) {
	opts, err := core.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts.Metrics = metrics.NewPrometheus(registry)

	if cfg.Engine.GapGuard {
		guard, err := killswitch.New()
		if err != nil {
			logger.Warning("Gap guard disabled: %v", err)
		} else {
			opts.Guard = guard
		}
	}

	facility := platform.New(platform.ConfigFrom(cfg))

	listen := cfg.Metrics.Listen
	if runNoMetrics {
		listen = ""
	}

	return &daemon{
		supervisor: core.NewSupervisor(facility, sh, opts),
		facility:   facility,
		store:      settings.NewStore(cfg.SettingsPath),
		registry:   registry,
		listen:     listen,
	}, nil
}

// Run starts the supervisor and blocks until ctx is done.
func (d *daemon) Run(ctx context.Context) error {
	defer d.shutdown()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	if err := d.supervisor.Start(); err != nil {
		return fmt.Errorf("failed to start blocker: %w", err)
	}
	d.apply()

	g, gctx := errgroup.WithContext(ctx)

	if d.listen != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, d.listen, d.registry)
		})
	}

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				logger.Info("SIGHUP received, reloading blocked apps")
				d.apply()
			}
		}
	})

	return g.Wait()
}

// shutdown destroys the supervisor and lets every attempt unwind before the
// facility is closed.
func (d *daemon) shutdown() {
	logger.Info("Shutting down")
	d.supervisor.Destroy()

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := d.supervisor.WaitIdle(ctx); err != nil {
		logger.Warning("Attempts still running at exit: %v", err)
	}

	if err := d.facility.Close(); err != nil {
		logger.Warning("Failed to remove protect rule: %v", err)
	}
}

// apply hands the stored set to the supervisor.
func (d *daemon) apply() {
	apps, err := d.store.Load()
	if err != nil {
		logger.Error("Failed to load blocked apps: %v", err)
		return
	}
	d.supervisor.UpdateBlockedApps(apps.Slice())
}
