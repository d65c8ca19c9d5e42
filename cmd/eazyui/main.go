// Command eazyui is the live element editor daemon.
//
// Usage:
//
//	eazyui -config eazyui.yaml          # run with config file
//	eazyui -db eazyui.db                # run with defaults
//	eazyui -db eazyui.db -browser       # headless browser layout probing
//	eazyui -db eazyui.db -browser-url ws://127.0.0.1:9222
//	eazyui -db eazyui.db -mcp-quic :9444
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/dukes-snr/EazyUi-sub001/editor"
	"github.com/dukes-snr/EazyUi-sub001/mcpquic"
	"github.com/dukes-snr/EazyUi-sub001/preview"
	"github.com/dukes-snr/EazyUi-sub001/safety"
)

func main() {
	configPath := flag.String("config", "", "path to eazyui.yaml config file")
	dbPath := flag.String("db", "", "path to the design SQLite database")
	httpAddr := flag.String("addr", "", "HTTP listen address (overrides config)")
	mcpQUICAddr := flag.String("mcp-quic", "", "serve MCP over QUIC on this address")
	tlsCert := flag.String("tls-cert", "", "TLS certificate for the MCP listener")
	tlsKey := flag.String("tls-key", "", "TLS key for the MCP listener")
	useBrowser := flag.Bool("browser", false, "probe layout through a headless browser")
	browserURL := flag.String("browser-url", "", "DevTools URL of an already-running browser (implies -browser)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *dbPath, *httpAddr, *mcpQUICAddr, *tlsCert, *tlsKey, *useBrowser, *browserURL); err != nil {
		logger.Error("eazyui: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath, httpAddr, mcpQUICAddr, tlsCert, tlsKey string, useBrowser bool, browserURL string) error {
	cfg, err := resolveConfig(configPath, dbPath)
	if err != nil {
		return err
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}

	var opts []editor.Option
	if useBrowser || browserURL != "" {
		prober := preview.New(preview.Config{
			RemoteURL: browserURL,
			Width:     cfg.Frame.Width,
			Height:    cfg.Frame.Height,
			Logger:    logger,
		})
		if err := prober.Start(ctx); err != nil {
			return fmt.Errorf("browser: %w", err)
		}
		defer prober.Close()
		opts = append(opts, editor.WithResolver(prober))
	}

	ed, err := editor.New(cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer ed.Close()
	ed.Start(ctx)

	// Optional MCP over QUIC.
	if mcpQUICAddr != "" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "eazyui",
			Version: "1.0.0",
		}, nil)
		ed.RegisterMCP(mcpSrv)

		var tlsCfg *tls.Config
		if tlsCert != "" && tlsKey != "" {
			tlsCfg, err = mcpquic.ServerTLSConfig(tlsCert, tlsKey)
		} else {
			tlsCfg, err = mcpquic.SelfSignedTLSConfig()
		}
		if err != nil {
			return fmt.Errorf("mcp tls: %w", err)
		}
		ql, err := mcpquic.NewListener(mcpQUICAddr, tlsCfg, mcpSrv, logger)
		if err != nil {
			return fmt.Errorf("mcp listener: %w", err)
		}
		defer ql.Close()
		go func() {
			logger.Info("eazyui: MCP QUIC listening", "addr", mcpQUICAddr)
			if sErr := ql.Serve(ctx); sErr != nil && ctx.Err() == nil {
				logger.Error("eazyui: MCP QUIC", "error", sErr)
			}
		}()
	}

	// Surface out-of-band design writes (imports, other tools).
	ed.WatchScreens(ctx, 500*time.Millisecond, func() error {
		logger.Info("eazyui: screens changed outside the editor")
		return nil
	})

	r := chi.NewRouter()
	for _, mw := range ed.Middleware() {
		r.Use(mw)
	}
	ed.RegisterHTTP(r)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("eazyui: HTTP listening", "addr", cfg.HTTPAddr)
		if sErr := srv.ListenAndServe(); !errors.Is(sErr, http.ErrServerClosed) {
			errCh <- sErr
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http: %w", err)
	case <-ctx.Done():
	}

	logger.Info("eazyui: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func resolveConfig(configPath, dbPath string) (*editor.Config, error) {
	if configPath != "" {
		return editor.LoadConfigFile(configPath)
	}
	cfg := &editor.Config{}
	if dbPath != "" {
		p, err := resolveDBPath(dbPath)
		if err != nil {
			return nil, err
		}
		cfg.DBPath = p
	}
	return cfg, nil
}

// resolveDBPath anchors relative database paths under the working directory
// and rejects traversal out of it. Absolute paths pass through untouched.
func resolveDBPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	base, err := os.Getwd()
	if err != nil {
		return "", err
	}
	p, err := safety.SafePath(base, path)
	if err != nil {
		return "", fmt.Errorf("db path %q: %w", path, err)
	}
	return p, nil
}
