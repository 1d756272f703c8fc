// -----------------------------------------------------------------------
// Last Modified: Thursday, 16th October 2025
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/app"
	"github.com/ternarybob/roomathon/internal/common"
	"github.com/ternarybob/roomathon/internal/server"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles    configPaths // Multiple -config flags supported
	serverPort     = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP    = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost     = flag.String("host", "", "Server host (overrides config)")
	generateID     = flag.String("generate", "", "Generate, publish and email the report for an inspection, then exit")
	notifyID       = flag.String("notify", "", "Re-send the report email for an already published inspection, then exit")
	requesterEmail = flag.String("requester", "", "Requester email copied on the report email (with -generate or -notify)")
	showVersion    = flag.Bool("version", false, "Print version information")
	showVersionV   = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	common.LoadVersionFromFile()

	if *showVersion || *showVersionV {
		fmt.Printf("Roomathon version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	if len(configFiles) == 0 {
		if _, err := os.Stat("roomathon.toml"); err == nil {
			configFiles = append(configFiles, "roomathon.toml")
		} else if _, err := os.Stat("deployments/local/roomathon.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/roomathon.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, finalPort, *serverHost)

	logger = common.InitLogger(config)

	common.PrintBanner(common.GetVersion())

	logger.Debug().
		Str("environment", config.Environment).
		Str("badger_path", config.Storage.Badger.Path).
		Str("blob_provider", config.Storage.Blob.Provider).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Msg("Resolved configuration (sanitized)")

	if config.IsProduction() && config.Storage.Blob.Provider == "local" {
		logger.Warn().
			Str("local_dir", config.Storage.Blob.LocalDir).
			Msg("Production environment is publishing reports to local disk")
	}

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// One-shot modes close the app themselves since os.Exit skips defers
	if *generateID != "" || *notifyID != "" {
		var code int
		if *generateID != "" {
			code = runGenerate(application, *generateID, *requesterEmail)
		} else {
			code = runNotify(application, *notifyID, *requesterEmail)
		}
		_ = application.Close()
		os.Exit(code)
	}

	runServer(application)
}

// runServer serves the HTTP API until SIGINT or SIGTERM
func runServer(application *app.App) {
	if err := application.StartBackground(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start background services")
	}

	srv := server.New(application)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()

		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}
