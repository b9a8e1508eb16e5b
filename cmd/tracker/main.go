package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"langpulse/tracker/internal/classify"
	"langpulse/tracker/internal/config"
	"langpulse/tracker/internal/database"
	"langpulse/tracker/internal/hn"
	"langpulse/tracker/internal/pipeline"
	"langpulse/tracker/internal/posts"
	"langpulse/tracker/internal/server"
	"langpulse/tracker/internal/store"
)

const usage = `Usage: tracker [command] [options]
Commands: fetch, clean, sync, server

For command-specific options, use: tracker [command] -h`

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	cfg := config.DefaultConfig()
	if path := config.GetEnvString("TRACKER_CONFIG", ""); path != "" {
		loaded, err := config.LoadFile(path, cfg)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to load config file")
			os.Exit(1)
		}
		cfg = loaded
	}

	fetchCmd := flag.NewFlagSet("fetch", flag.ExitOnError)
	pathFlags(fetchCmd, cfg)
	fetchCmd.IntVar(&cfg.Fetch.Pages, "pages", config.GetEnvInt("TRACKER_PAGES", cfg.Fetch.Pages),
		"Number of result pages to request (env: TRACKER_PAGES)")
	fetchCmd.DurationVar(&cfg.Fetch.PageDelay, "delay", config.GetEnvDuration("TRACKER_PAGE_DELAY", time.Second, cfg.Fetch.PageDelay),
		"Delay between page requests (env: TRACKER_PAGE_DELAY)")
	fetchCmd.StringVar(&cfg.Fetch.APIURL, "api-url", config.GetEnvString("TRACKER_API_URL", cfg.Fetch.APIURL),
		"Search endpoint (env: TRACKER_API_URL)")
	fetchCmd.DurationVar(&cfg.Interval, "interval", config.GetEnvDuration("TRACKER_INTERVAL", time.Minute, cfg.Interval),
		"Interval between fetch runs, 0 for one-shot mode; bare numbers are minutes in the environment (env: TRACKER_INTERVAL)")
	fetchLogLevel := logLevelFlag(fetchCmd, cfg)

	cleanCmd := flag.NewFlagSet("clean", flag.ExitOnError)
	pathFlags(cleanCmd, cfg)
	var cleanTarget string
	cleanCmd.StringVar(&cleanTarget, "target", "all", "Store to clean: csv, db or all")
	cleanLogLevel := logLevelFlag(cleanCmd, cfg)

	syncCmd := flag.NewFlagSet("sync", flag.ExitOnError)
	pathFlags(syncCmd, cfg)
	var syncFrom string
	syncCmd.StringVar(&syncFrom, "from", "csv", "Source store, the other one is replaced: csv or db")
	syncLogLevel := logLevelFlag(syncCmd, cfg)

	serverCmd := flag.NewFlagSet("server", flag.ExitOnError)
	serverCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("TRACKER_DB_PATH", cfg.DBPath),
		"Path to the SQLite database file (env: TRACKER_DB_PATH)")
	serverCmd.StringVar(&cfg.ServerHost, "host", config.GetEnvString("TRACKER_HOST", cfg.ServerHost),
		"Host to bind the server to (env: TRACKER_HOST)")
	serverCmd.IntVar(&cfg.ServerPort, "port", config.GetEnvInt("TRACKER_PORT", cfg.ServerPort),
		"Port to listen on (env: TRACKER_PORT)")
	serverLogLevel := logLevelFlag(serverCmd, cfg)

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "fetch":
		fetchCmd.Parse(os.Args[2:])
		setLogLevel(cfg, *fetchLogLevel)
		if err = runFetch(cfg); err != nil {
			log.Error().Err(err).Msg("Fetch failed")
		}

	case "clean":
		cleanCmd.Parse(os.Args[2:])
		setLogLevel(cfg, *cleanLogLevel)
		if err = runClean(cfg, cleanTarget); err != nil {
			log.Error().Err(err).Msg("Clean failed")
		}

	case "sync":
		syncCmd.Parse(os.Args[2:])
		setLogLevel(cfg, *syncLogLevel)
		if err = runSync(cfg, syncFrom); err != nil {
			log.Error().Err(err).Msg("Sync failed")
		}

	case "server":
		serverCmd.Parse(os.Args[2:])
		setLogLevel(cfg, *serverLogLevel)
		if err = runServer(cfg); err != nil {
			log.Error().Err(err).Msg("Server failed")
		}

	case "-h", "--help", "help":
		fmt.Println(usage)
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		os.Exit(1)
	}
}

func pathFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.CSVPath, "csv", config.GetEnvString("TRACKER_CSV_PATH", cfg.CSVPath),
		"Path to the CSV store (env: TRACKER_CSV_PATH)")
	fs.StringVar(&cfg.DBPath, "db", config.GetEnvString("TRACKER_DB_PATH", cfg.DBPath),
		"Path to the SQLite database file (env: TRACKER_DB_PATH)")
}

func logLevelFlag(fs *flag.FlagSet, cfg *config.Config) *string {
	level := config.GetEnvLogLevel("TRACKER_LOG_LEVEL", cfg.LogLevel)
	return fs.String("log-level", level.String(),
		"Log level: debug, info, warn, error (env: TRACKER_LOG_LEVEL)")
}

// setLogLevel keeps the configured level when the flag does not parse.
func setLogLevel(cfg *config.Config, value string) {
	if level, err := zerolog.ParseLevel(value); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-shutdown:
			log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(shutdown)
	}()

	return ctx, cancel
}

// openStores opens both stores; reads drop language tags outside the
// configured table.
func openStores(cfg *config.Config, table *classify.LanguageTable) (*store.CSVStore, *store.SQLStore, *database.DB, error) {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store.NewCSVStore(cfg.CSVPath).WithLanguages(table), store.NewSQLStore(db).WithLanguages(table), db, nil
}

// runFetch executes the fetch pipeline either once or periodically based on configuration.
func runFetch(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	table, err := classify.NewLanguageTable(cfg.Languages)
	if err != nil {
		return err
	}
	log.Debug().Strs("languages", table.Tags()).Msg("Language table loaded")
	lexicon, err := classify.NewLexicon()
	if err != nil {
		return err
	}

	csvStore, sqlStore, db, err := openStores(cfg, table)
	if err != nil {
		return err
	}
	defer db.Close()

	runner := pipeline.NewRunner(
		hn.NewClient(cfg.Fetch),
		posts.NewBuilder(classify.New(table, lexicon)),
		cfg.Fetch.Pages,
		csvStore, sqlStore,
	)

	if cfg.Interval <= 0 {
		log.Info().Msg("Running in one-shot mode")
	} else {
		log.Info().Dur("interval", cfg.Interval).Msg("Running in periodic mode")
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := runCycle(ctx, runner, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("Fetch run canceled by shutdown signal")
			return nil
		}
		return err
	}

	if cfg.Interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info().
		Time("next_run", time.Now().Add(cfg.Interval)).
		Msg("Waiting for next fetch run")

	for {
		select {
		case <-ticker.C:
			if err := runCycle(ctx, runner, cfg); err != nil {
				if errors.Is(err, context.Canceled) {
					log.Info().Msg("Fetch run canceled by shutdown signal")
					return nil
				}
				log.Error().Err(err).Msg("Fetch run failed")
				// Continue to the next run rather than exiting
			}

			log.Info().
				Time("next_run", time.Now().Add(cfg.Interval)).
				Msg("Waiting for next fetch run")

		case <-ctx.Done():
			log.Info().Msg("Shutting down periodic fetching")
			return nil
		}
	}
}

func runCycle(ctx context.Context, runner *pipeline.Runner, cfg *config.Config) error {
	stats, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if stats.Rows == 0 {
		fmt.Println("No posts fetched.")
		return nil
	}

	fmt.Printf("Fetched %d posts; saved to %s and %s\n", stats.Rows, cfg.CSVPath, cfg.DBPath)
	return nil
}

// runClean deduplicates and re-sorts the selected stores in place.
func runClean(cfg *config.Config, target string) error {
	if target != "csv" && target != "db" && target != "all" {
		return fmt.Errorf("unknown clean target %q, want csv, db or all", target)
	}

	table, err := classify.NewLanguageTable(cfg.Languages)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var targets []store.PostStore
	if target == "csv" || target == "all" {
		targets = append(targets, store.NewCSVStore(cfg.CSVPath).WithLanguages(table))
	}
	if target == "db" || target == "all" {
		db, err := database.NewDB(database.NewConfig(cfg.DBPath))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()
		targets = append(targets, store.NewSQLStore(db).WithLanguages(table))
	}

	for _, s := range targets {
		before, after, err := store.Clean(ctx, s)
		if err != nil {
			return err
		}
		fmt.Printf("Cleaned %s store: %d -> %d rows\n", s.Name(), before, after)
	}
	return nil
}

// runSync replaces one store with the contents of the other.
func runSync(cfg *config.Config, from string) error {
	table, err := classify.NewLanguageTable(cfg.Languages)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	csvStore, sqlStore, db, err := openStores(cfg, table)
	if err != nil {
		return err
	}
	defer db.Close()

	var src, dst store.PostStore
	switch from {
	case "csv":
		src, dst = csvStore, sqlStore
	case "db":
		src, dst = sqlStore, csvStore
	default:
		return fmt.Errorf("unknown sync source %q, want csv or db", from)
	}

	n, err := store.Resync(ctx, src, dst)
	if err != nil {
		return err
	}
	fmt.Printf("Synced %d rows from %s store to %s store\n", n, src.Name(), dst.Name())
	return nil
}

// runServer starts the HTTP API server with the provided configuration.
func runServer(cfg *config.Config) error {
	dbCfg := database.NewConfig(cfg.DBPath)
	dbCfg.ReadOnly = true

	db, err := database.NewDB(dbCfg)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	return server.RunServer(db, cfg.ListenAddr(), log.Logger)
}
