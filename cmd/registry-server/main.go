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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/registry/internal/config"
	"github.com/ehr/registry/internal/domain/patient"
	"github.com/ehr/registry/internal/platform/db"
	"github.com/ehr/registry/internal/platform/metrics"
	"github.com/ehr/registry/internal/platform/middleware"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "registry-server",
		Short:         "Patient registry API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(sampleCmd())
	cmd.AddCommand(checkCmd())
	cmd.AddCommand(seedCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the registry API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func sampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write the sample bulk import payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")

			var w io.Writer = cmd.OutOrStdout()
			if out == "" {
				out = patient.SampleFileName(format)
			}
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := patient.WriteSample(w, format); err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().String("format", patient.FormatJSON, "Payload format: json or yaml")
	cmd.Flags().String("out", "", "Output path, - for stdout (default sample-patients.<format>)")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Parse a bulk import payload and report what would be staged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := patient.FileSeed{Path: args[0]}.Load(cmd.Context())
			if err != nil {
				return err
			}
			unknown := 0
			for _, r := range records {
				if !patient.IsDepartment(r.Department) {
					unknown++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d record(s) would be staged\n", len(records))
			if unknown > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d record(s) name a department outside the doctor table\n", unknown)
			}
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the configured seed source, or write a payload file into a seed database",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if from == "" {
				if err := cfg.Validate(); err != nil {
					return err
				}
				src, cleanup, _, err := buildSeedSource(ctx, cfg)
				if err != nil {
					return err
				}
				defer cleanup()
				records, err := src.Load(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s seed holds %d record(s)\n", cfg.SeedSource, len(records))
				return nil
			}

			records, err := patient.FileSeed{Path: from}.Load(ctx)
			if err != nil {
				return err
			}
			switch to {
			case config.SeedPostgres:
				pool, err := openPool(ctx, cfg)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := patient.ReplacePGSeed(ctx, pool, records); err != nil {
					return err
				}
			case config.SeedSQLite:
				s, err := patient.OpenSQLiteSeed(cfg.SQLitePath)
				if err != nil {
					return err
				}
				defer s.Close()
				if err := s.Replace(ctx, records); err != nil {
					return err
				}
			default:
				return fmt.Errorf("--to must be %q or %q", config.SeedPostgres, config.SeedSQLite)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d record(s) to %s seed\n", len(records), to)
			return nil
		},
	}
	cmd.Flags().String("from", "", "Payload file to write into the seed database")
	cmd.Flags().String("to", config.SeedSQLite, "Seed database to write: postgres or sqlite")
	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var w io.Writer = os.Stdout
	if cfg.IsDev() {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(cfg.Level()).With().Timestamp().Str("service", "registry").Logger()
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, db.PoolConfig{
		URL:         cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		ConnTimeout: 10 * time.Second,
		AppName:     "registry-server",
	})
}

// buildSeedSource opens the configured seed source. The returned pool is
// non-nil only for the postgres source.
func buildSeedSource(ctx context.Context, cfg *config.Config) (patient.SeedSource, func(), *pgxpool.Pool, error) {
	noop := func() {}
	switch cfg.SeedSource {
	case config.SeedFile:
		return patient.FileSeed{Path: cfg.SeedFile}, noop, nil, nil
	case config.SeedPostgres:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return nil, noop, nil, err
		}
		return patient.NewPGSeed(pool), pool.Close, pool, nil
	case config.SeedSQLite:
		s, err := patient.OpenSQLiteSeed(cfg.SQLitePath)
		if err != nil {
			return nil, noop, nil, err
		}
		return s, func() { _ = s.Close() }, nil, nil
	case config.SeedS3:
		s, err := patient.NewS3Seed(ctx, patient.S3SeedConfig{
			Bucket:          cfg.S3Bucket,
			Key:             cfg.S3Key,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, noop, nil, err
		}
		return s, noop, nil, nil
	case config.SeedNone:
		return patient.EmptySeed, noop, nil, nil
	}
	return nil, noop, nil, fmt.Errorf("unknown seed source %q", cfg.SeedSource)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Seed
	ctx := context.Background()
	src, cleanup, pool, err := buildSeedSource(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("seed_source", cfg.SeedSource).Msg("failed to open seed source")
	}
	defer cleanup()

	loadCtx, cancelLoad := context.WithTimeout(ctx, 30*time.Second)
	seed, err := src.Load(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Fatal().Err(err).Str("seed_source", cfg.SeedSource).Msg("failed to load seed records")
	}
	logger.Info().Str("seed_source", cfg.SeedSource).Int("records", len(seed)).Msg("seed records loaded")

	// Sessions
	m := metrics.New()
	reg := patient.NewRegistry(seed, patient.RegistryOptions{
		MaxSessions: cfg.MaxSessions,
		IdleTimeout: cfg.SessionIdleTimeout,
		PageSize:    cfg.DefaultPageSize,
		Recorder:    m,
		Logger:      logger,
	})
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go reg.Run(sweepCtx, time.Minute)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(m.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.ImportBodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, echo.HeaderContentDisposition},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"version":  version,
			"sessions": reg.Len(),
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	rateLimit := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimit.RequestsPerSecond <= 0 {
		rateLimit = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimit))
	patient.NewHandler(reg, logger, cfg.DefaultPageSize, cfg.MaxPageSize).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
