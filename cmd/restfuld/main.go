package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NoxZet/Restful/internal/config"
	"github.com/NoxZet/Restful/internal/db"
	"github.com/NoxZet/Restful/internal/httpapi"
	"github.com/NoxZet/Restful/internal/mapping"
	"github.com/NoxZet/Restful/internal/response"
	"github.com/NoxZet/Restful/internal/store"
)

func main() {
	cfgPath := flag.String("config", "/etc/restfuld.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		slog.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := store.EnsureSchema(ctx, pool); err != nil {
		slog.Error("db schema", "error", err)
		os.Exit(1)
	}

	mappers := mapping.DefaultContext(cfg.Response.XMLRootElement)
	responses, err := newResponseFactory(cfg.Response, mappers)
	if err != nil {
		slog.Error("response formats", "error", err)
		os.Exit(1)
	}

	router := httpapi.NewRouter(cfg, httpapi.Deps{
		Pool:      pool,
		Store:     store.New(pool),
		Mappers:   mappers,
		Responses: responses,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("restful service listening", "addr", cfg.ListenAddr, "formats", responses.Types())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("listen and serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// newResponseFactory applies the configured extra and disabled formats on
// top of the built-in ones.
func newResponseFactory(cfg config.ResponseConfig, mappers *mapping.Context) (*response.ResponseFactory, error) {
	responses := response.NewResponseFactory(response.Config{
		JSONPKey:       cfg.JSONPKey,
		PrettyPrintKey: cfg.PrettyPrintKey,
		PrettyPrint:    cfg.PrettyPrint,
	}, mappers)

	for _, f := range cfg.ExtraFormats {
		m, factory := formatMapper(f.Mapper, cfg.XMLRootElement)
		mappers.Register(f.MIMEType, m)
		if err := responses.RegisterResponse(f.MIMEType, factory); err != nil {
			return nil, err
		}
	}
	for _, mime := range cfg.DisabledFormats {
		responses.UnregisterResponse(mime)
	}
	return responses, nil
}

func formatMapper(name, xmlRoot string) (mapping.Mapper, response.Factory) {
	switch name {
	case "json":
		return &mapping.JSONMapper{}, response.NewTextResponse
	case "query":
		return &mapping.QueryMapper{}, response.NewTextResponse
	case "xml":
		return &mapping.XMLMapper{RootElement: xmlRoot}, response.NewTextResponse
	case "yaml":
		return &mapping.YAMLMapper{}, response.NewTextResponse
	default:
		return &mapping.ProtobufMapper{}, response.NewBinaryResponse
	}
}
