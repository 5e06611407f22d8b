// cmd/binder/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-binder/internal/binding"
	"github.com/tamzrod/modbus-binder/internal/config"
	"github.com/tamzrod/modbus-binder/internal/metrics"
)

func main() {
	var (
		cfgPath  = flag.String("config", "binder.yaml", "configuration file")
		envPath  = flag.String("env", ".env", "optional dotenv file")
		console  = flag.Bool("console", false, "human readable logs")
		describe = flag.Bool("describe", false, "print the binding grammar and configured data points, then exit")
	)
	flag.Parse()
	if flag.NArg() > 0 {
		*cfgPath = flag.Arg(0)
	}

	var out io.Writer = os.Stderr
	if *console {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	log := zerolog.New(out).With().Timestamp().Logger()

	// --------------------
	// Environment + config
	// --------------------

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal().Err(err).Str("path", *envPath).Msg("env file load failed")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *cfgPath).Msg("config load failed")
	}
	applyLogLevel(log, cfg.Binder.Log.Level)

	if *describe {
		printDescription(os.Stdout, cfg)
		return
	}

	// --------------------
	// Metrics endpoint
	// --------------------

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var srv *http.Server
	if cfg.Binder.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: cfg.Binder.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics endpoint stopped")
			}
		}()
		log.Info().Str("listen", cfg.Binder.Metrics.Listen).Msg("metrics endpoint up")
	}

	// --------------------
	// Build + run devices
	// --------------------

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	sup := newSupervisor(ctx, log, m)
	for _, dc := range cfg.Binder.Devices {
		if err := sup.start(dc); err != nil {
			log.Fatal().Err(err).Msg("device build failed")
		}
	}

	// --------------------
	// Signals: HUP reloads, USR1 dumps values, INT/TERM stop
	// --------------------

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGINT, syscall.SIGTERM)

	for sig := range sigs {
		switch sig {
		case syscall.SIGHUP:
			next, err := loadConfig(*cfgPath)
			if err != nil {
				log.Error().Err(err).Msg("reload rejected, keeping current configuration")
				continue
			}
			applyLogLevel(log, next.Binder.Log.Level)
			sup.reload(next.Binder.Devices)

		case syscall.SIGUSR1:
			for _, line := range sup.debugLog() {
				log.Info().Msg(line)
			}

		default:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			sup.stopAll()
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = srv.Shutdown(shutdownCtx)
				cancel()
			}
			return
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func applyLogLevel(log zerolog.Logger, name string) {
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Debug().Str("level", lvl.String()).Msg("log level set")
}

// printDescription lists the accepted binding tokens and every configured data point.
func printDescription(w io.Writer, cfg *config.Config) {
	fmt.Fprint(w, binding.Describe().String())

	for _, d := range cfg.Binder.Devices {
		ids := make([]string, 0, len(d.Points))
		for _, p := range d.Points {
			suffix := ""
			if p.Writable {
				suffix = ",writable"
			}
			ids = append(ids, fmt.Sprintf("%s(%s%s)", p.ID, p.Type, suffix))
		}
		fmt.Fprintf(w, "device %s points: %s\n", d.ID, strings.Join(ids, ", "))
	}
}
