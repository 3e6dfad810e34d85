// Package main provides the autologout entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autologout/internal/app/idle"
	"github.com/osa030/autologout/internal/app/notification"
	"github.com/osa030/autologout/internal/app/timer"
	"github.com/osa030/autologout/internal/infra/config"
	"github.com/osa030/autologout/internal/infra/hooks"
	"github.com/osa030/autologout/internal/infra/logger"
	"github.com/osa030/autologout/internal/infra/metrics"
	"github.com/osa030/autologout/internal/infra/portal"
	"github.com/osa030/autologout/internal/ui/host"
	_ "github.com/osa030/autologout/internal/ui/headless"
	"github.com/osa030/autologout/internal/ui/terminal"
)

const defaultTerminalLogFile = "autologout.log"

var (
	app         = kingpin.New("autologout", "Log out of an idle portal session")
	configPath  = app.Flag("config", "Path to config file (default: built-in defaults and environment)").String()
	verbose     = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile     = app.Flag("logfile", "Path to log file (default: stderr, or "+defaultTerminalLogFile+" for the terminal host)").String()
	metricsAddr = app.Flag("metrics-addr", "Serve Prometheus metrics on this address").String()

	watchCmd       = app.Command("watch", "Watch the session and log out when idle (default)").Default()
	checkConfigCmd = app.Command("check-config", "Validate the config file and exit")
	listHostsCmd   = app.Command("list-hosts", "List available hosts and exit")
	logoutCmd      = app.Command("logout", "Log out of the portal now and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listHostsCmd.FullCommand() {
		printHosts()
		return
	}

	closer, err := initLogger("stderr")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := loadConfig()
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	switch command {
	case checkConfigCmd.FullCommand():
		err = checkConfig(cfg)
	case logoutCmd.FullCommand():
		err = logoutNow(cfg)
	case watchCmd.FullCommand():
		// The terminal host owns the screen, so its logs go to a file.
		if cfg.Host.Type == terminal.Name && *logfile == "" {
			_ = closer.Close()
			if closer, err = initLogger(defaultTerminalLogFile); err != nil {
				panic(fmt.Sprintf("Failed to initialize logger: %v", err))
			}
		}
		err = run(cfg)
	}

	if err != nil {
		zlog.Error().Msgf("%s failed: %v", command, err)
		_ = closer.Close()
		os.Exit(1)
	}
	_ = closer.Close()
}

// loadConfig reads --config, or falls back to defaults and the environment.
func loadConfig() (*config.Config, error) {
	if *configPath == "" {
		zlog.Info().Msg("No config file given, using defaults and environment")
		return config.Default()
	}
	zlog.Info().Msgf("Loading config from %s", *configPath)
	return config.Load(*configPath)
}

func initLogger(output string) (io.Closer, error) {
	cfg := logger.Config{Output: output, Level: "info"}
	if *verbose {
		cfg.Level = "debug"
	}
	if *logfile != "" {
		cfg.Output = *logfile
	}
	return logger.Init(cfg)
}

// run watches the session until the user quits, the page navigates away, or a
// shutdown signal arrives.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := newPortalClient(cfg)
	if err != nil {
		return err
	}
	if !client.HasSession() {
		zlog.Warn().Msg("No session cookie configured; the logout call will not carry a session")
	}

	page, err := newHost(cfg, client)
	if err != nil {
		return err
	}

	// Scheduler
	loop := timer.NewLoop()
	loopCtx, cancelLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(loopCtx)
	}()
	defer func() {
		cancelLoop()
		<-loopDone
	}()

	monitor := idle.New(cfg.MonitorConfig(), loop, page, client)

	// Event fan-out
	m := metrics.New()
	runner := hooks.New(hooks.Config{
		OnWarning:   cfg.Hooks.OnWarning,
		OnLoggedOut: cfg.Hooks.OnLoggedOut,
		OnStopped:   cfg.Hooks.OnStopped,
	})
	notifier := notification.NewManager()
	defer notifier.Close()
	notifier.Subscribe(notification.LogSink())
	notifier.Subscribe(notification.SinkFunc(func(n notification.Notification) error {
		m.Observe(n.Event)
		return nil
	}))
	notifier.Subscribe(runner.Sink(ctx))

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		notifier.Pump(context.Background(), monitor.Events())
	}()

	// Metrics server
	var server *http.Server
	serverErrCh := make(chan error, 1)
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		server = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			zlog.Info().Msgf("Starting metrics server: addr=%s path=%s", cfg.Metrics.Addr, cfg.Metrics.Path)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrCh <- err
			}
		}()
	}

	if err := monitor.Start(); err != nil {
		return errors.Wrap(err, "failed to start idle monitor")
	}

	hostCtx, cancelHost := context.WithCancel(ctx)
	defer cancelHost()
	hostErrCh := make(chan error, 1)
	go func() {
		hostErrCh <- page.Run(hostCtx)
	}()

	var runErr error
	select {
	case runErr = <-hostErrCh:
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "metrics server error")
		cancelHost()
		<-hostErrCh
	}

	zlog.Info().Msgf("Page closed: state=%s", monitor.State())

	// Teardown: monitor first so the event stream drains.
	monitor.Close()
	select {
	case <-pumpDone:
	case <-time.After(2 * time.Second):
		zlog.Warn().Msg("Timed out waiting for monitor events to drain")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown metrics server: %v", err)
		}
	}
	if err := runner.Stopped(shutdownCtx); err != nil {
		zlog.Warn().Err(err).Msg("on_stopped hooks failed")
	}

	if result := page.Result(); result != "" {
		fmt.Println(result)
	}
	return runErr
}

func newPortalClient(cfg *config.Config) (*portal.Client, error) {
	client, err := portal.New(portal.Config{
		BaseURL:           cfg.Portal.BaseURL,
		LogoutPath:        cfg.Portal.LogoutPath,
		Timeout:           cfg.Portal.Timeout,
		SessionCookieName: cfg.Portal.SessionCookieName,
		SessionCookie:     cfg.Portal.SessionCookie,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create portal client")
	}
	return client, nil
}

func newHost(cfg *config.Config, client *portal.Client) (host.Host, error) {
	page, err := host.New(cfg.Host.Type, cfg.Host.Settings, host.Options{
		Title:         cfg.Page.Title,
		IconHref:      cfg.Page.IconHref,
		AlertIconHref: cfg.Page.AlertIconHref,
		IndicatorText: cfg.Messages.Warning,
		AnimateClass:  cfg.Page.AnimateClass,
		PortalURL:     client.URL("/"),
		Navigate: func(ctx context.Context, path string) (string, error) {
			visit, err := client.Navigate(ctx, path)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s (%d %s)", visit.URL, visit.StatusCode, http.StatusText(visit.StatusCode)), nil
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s host", cfg.Host.Type)
	}
	return page, nil
}

// checkConfig validates everything watch would build, without starting it.
func checkConfig(cfg *config.Config) error {
	client, err := newPortalClient(cfg)
	if err != nil {
		return err
	}
	if _, err := newHost(cfg, client); err != nil {
		return err
	}

	fmt.Println("Config OK")
	fmt.Printf("  %-16s %v\n", "warning after:", cfg.UntilWarning())
	fmt.Printf("  %-16s %v\n", "logout after:", cfg.Idle.WarningGrace)
	fmt.Printf("  %-16s %s\n", "logout url:", client.URL(cfg.Portal.LogoutPath))
	fmt.Printf("  %-16s %s\n", "landing url:", client.URL(cfg.Portal.LandingPath))
	fmt.Printf("  %-16s %s\n", "host:", cfg.Host.Type)
	fmt.Printf("  %-16s %d\n", "activities:", len(cfg.ActivityKinds()))
	fmt.Printf("  %-16s %t\n", "session cookie:", client.HasSession())
	return nil
}

// logoutNow ends the portal session immediately.
func logoutNow(cfg *config.Config) error {
	client, err := newPortalClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Portal.Timeout)
	defer cancel()
	if err := client.Logout(ctx); err != nil {
		return err
	}
	fmt.Printf("Logged out of %s\n", client.URL("/"))
	return nil
}

// printHosts prints available hosts.
func printHosts() {
	fmt.Println("Available Hosts:")
	for _, f := range host.Registered() {
		fmt.Printf("  %-12s - %s\n", f.Name, f.Description)
	}
}
