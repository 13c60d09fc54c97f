package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/tasks/v1"

	"github.com/familyhub/familycal/internal/app"
	"github.com/familyhub/familycal/internal/auth"
	"github.com/familyhub/familycal/internal/config"
	"github.com/familyhub/familycal/internal/googlecal"
	"github.com/familyhub/familycal/internal/googletasks"
	"github.com/familyhub/familycal/internal/permissions"
	"github.com/familyhub/familycal/internal/server"
)

func printHelp() {
	fmt.Fprintf(os.Stderr, `Family Calendar Server

An HTTP server that presents a family's shared Google Calendars and task
lists through a single permission-checked API: an aggregated multi-calendar
view, event and recurring-series editing, task metadata, and an iCalendar
export feed.

USAGE:
    %s [OPTIONS]

OPTIONS:
    -h, --help                     Show this help message and exit
    -v, --verbose                  Enable verbose output (show DEBUG logs)
    --config FILE                  Path to JSON config file
    --listen-addr ADDR             Address to listen on (default ":8080")
    --google-credentials-path PATH Path to Google OAuth credentials JSON file
                                   (overrides config file and GOOGLE_CREDENTIALS_PATH env var)
    --token-path PATH              Path to store the OAuth token
                                   (overrides config file and FAMILYCAL_TOKEN_PATH env var)
    --permissions-path PATH        Path to the YAML permissions document
                                   (overrides config file and FAMILYCAL_PERMISSIONS_PATH env var)

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables (FAMILYCAL_LISTEN_ADDR, GOOGLE_CREDENTIALS_PATH,
       FAMILYCAL_TOKEN_PATH, FAMILYCAL_PERMISSIONS_PATH,
       FAMILYCAL_FETCH_TIMEOUT_SECONDS)
    3. Config file (--config)
    4. Defaults

    The Google credentials JSON file should be in the format downloaded from
    Google Cloud Console. It should contain either an "installed" or "web"
    section with "client_id" and "client_secret" fields.

    Requests are authenticated by the X-Forwarded-Email header set by the
    fronting identity proxy; the permissions document maps those emails to
    family members, roles, and calendars.

EXAMPLES:
    # Run the server with a config file
    %s --config /path/to/config.json

    # Override the permissions document location
    %s --config /path/to/config.json --permissions-path /etc/familycal/permissions.yaml

`, os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	helpFlag := flag.Bool("help", false, "Show help message")
	helpFlagShort := flag.Bool("h", false, "Show help message (shorthand)")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose output (show DEBUG logs)")
	verboseFlagShort := flag.Bool("v", false, "Enable verbose output (shorthand)")
	configFile := flag.String("config", "", "Path to JSON config file")
	listenAddr := flag.String("listen-addr", "", "Address to listen on")
	googleCredentialsPath := flag.String("google-credentials-path", "", "Path to Google OAuth credentials JSON file")
	tokenPath := flag.String("token-path", "", "Path to store the OAuth token")
	permissionsPath := flag.String("permissions-path", "", "Path to the YAML permissions document")
	flag.Parse()

	if *helpFlag || *helpFlagShort {
		printHelp()
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verboseFlag || *verboseFlagShort {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg, err := config.LoadConfig(*configFile, config.Flags{
		ListenAddr:            *listenAddr,
		GoogleCredentialsPath: *googleCredentialsPath,
		TokenPath:             *tokenPath,
		PermissionsPath:       *permissionsPath,
	})
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	clientID, clientSecret, err := config.LoadGoogleCredentials(cfg.GoogleCredentialsPath)
	if err != nil {
		logger.Error("failed to load Google credentials", "error", err)
		os.Exit(1)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes: []string{
			calendar.CalendarScope,
			tasks.TasksScope,
		},
		Endpoint: google.Endpoint,
	}

	httpClient, err := auth.GetClient(ctx, oauthConfig, auth.NewFileTokenStore(cfg.TokenPath), os.Stdin)
	if err != nil {
		logger.Error("failed to authenticate with Google", "error", err)
		os.Exit(1)
	}

	calClient, err := googlecal.NewClient(ctx, httpClient)
	if err != nil {
		logger.Error("failed to create calendar client", "error", err)
		os.Exit(1)
	}

	taskClient, err := googletasks.NewClient(ctx, httpClient)
	if err != nil {
		logger.Error("failed to create tasks client", "error", err)
		os.Exit(1)
	}

	perms, err := permissions.Load(cfg.PermissionsPath)
	if err != nil {
		logger.Error("failed to load permissions document", "error", err, "path", cfg.PermissionsPath)
		os.Exit(1)
	}

	eventService := app.NewEventService(perms, calClient, logger, cfg.FetchTimeout())
	taskService := app.NewTaskService(perms, taskClient, logger)

	handler := server.NewRouter(
		server.NewEventHandler(eventService, logger),
		server.NewTaskHandler(taskService, logger),
		perms,
		logger,
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		sig := <-sigCh

		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
