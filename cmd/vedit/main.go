// Command vedit runs the visual editor engine.
//
// Usage:
//
//	vedit -serve -page index.html              # host protocol over websocket
//	vedit -apply index.html -changes v1.json   # apply changes, print HTML
//	vedit -preview-url https://example.com -changes v1.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/absmartly/vedit/bridge"
	"github.com/absmartly/vedit/browser"
	"github.com/absmartly/vedit/change"
	"github.com/absmartly/vedit/dom"
	"github.com/absmartly/vedit/host"
	"github.com/absmartly/vedit/preview"
	"github.com/absmartly/vedit/sanitize"
	"github.com/absmartly/vedit/store"
)

func main() {
	configPath := flag.String("config", "", "path to vedit.yaml config file")
	serve := flag.Bool("serve", false, "serve the host protocol over websocket")
	pagePath := flag.String("page", "", "HTML file backing the mirror document")
	applyPath := flag.String("apply", "", "apply -changes to an HTML file and print the result")
	previewURL := flag.String("preview-url", "", "apply -changes to a live page via Chrome")
	changesPath := flag.String("changes", "", "path to a change list JSON file")
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

	if err := run(ctx, logger, *configPath, *serve, *pagePath, *applyPath, *previewURL, *changesPath); err != nil {
		logger.Error("vedit: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger,
	configPath string, serve bool, pagePath, applyPath, previewURL, changesPath string) error {

	cfg := defaultConfig()
	if configPath != "" {
		loaded, err := LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if pagePath != "" {
		cfg.PagePath = pagePath
	}

	switch {
	case applyPath != "":
		return runApply(logger, cfg, applyPath, changesPath)
	case previewURL != "":
		return runPreviewURL(ctx, logger, cfg, previewURL, changesPath)
	case serve:
		return runServe(ctx, logger, cfg)
	}

	fmt.Fprintln(os.Stderr, "usage: vedit -serve -page <file> | -apply <file> -changes <json> | -preview-url <url> -changes <json>")
	os.Exit(1)
	return nil
}

func loadChanges(path string) ([]change.Change, error) {
	if path == "" {
		return nil, fmt.Errorf("missing -changes")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read changes: %w", err)
	}
	list, err := change.UnmarshalList(data)
	if err != nil {
		return nil, fmt.Errorf("parse changes: %w", err)
	}
	if err := change.ValidateList(list); err != nil {
		return nil, fmt.Errorf("validate changes: %w", err)
	}
	return sanitize.Changes(list), nil
}

// runApply replays a change list into a local HTML file and prints the
// mutated document to stdout.
func runApply(logger *slog.Logger, cfg *Config, pagePath, changesPath string) error {
	list, err := loadChanges(changesPath)
	if err != nil {
		return err
	}

	markup, err := os.ReadFile(pagePath)
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}
	doc, err := dom.ParseString(string(markup))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	p := preview.New(doc, logger)
	if err := p.Apply("cli", list); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	if n := p.Pending(); n > 0 {
		logger.Warn("vedit: changes waiting for elements that never appeared", "count", n)
	}

	out, err := doc.Render()
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	fmt.Println(out)
	return nil
}

// runPreviewURL replays a change list into a live page and prints the
// mutated DOM.
func runPreviewURL(ctx context.Context, logger *slog.Logger, cfg *Config, pageURL, changesPath string) error {
	list, err := loadChanges(changesPath)
	if err != nil {
		return err
	}

	d := browser.NewDriver(browser.Config{
		RemoteURL:  cfg.Browser.Remote,
		Stealth:    cfg.Browser.Stealth,
		NavTimeout: cfg.Browser.NavTimeout,
		Logger:     logger,
	})
	if err := d.Start(ctx); err != nil {
		return err
	}
	defer d.Close()

	page, err := d.Open(ctx, pageURL)
	if err != nil {
		return err
	}
	if err := d.Apply(ctx, page, list); err != nil {
		return err
	}

	out, err := d.HTML(ctx, page)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// runServe exposes the host protocol over websocket. Every connecting
// relay gets a fresh mirror parsed from the configured page file.
func runServe(ctx context.Context, logger *slog.Logger, cfg *Config) error {
	if cfg.PagePath == "" {
		return fmt.Errorf("serve mode requires -page or page_path in config")
	}
	markup, err := os.ReadFile(cfg.PagePath)
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}

	var st *store.Store
	if cfg.StorePath != "" {
		st, err = store.Open(cfg.StorePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}

	factory := func(out *host.Router) (*host.Gateway, error) {
		doc, err := dom.ParseString(string(markup))
		if err != nil {
			return nil, fmt.Errorf("parse page: %w", err)
		}
		if st != nil {
			out = host.NewRouter(logger, out, saveSink{st: st, logger: logger})
		}
		return host.NewGateway(host.GatewayConfig{
			Document:        doc,
			Out:             out,
			SelectorOptions: cfg.selectorOptions(),
			AutoStopDelay:   cfg.AutoStopDelay,
			Logger:          logger,
		})
	}

	srv := bridge.NewServer(factory, logger)
	return srv.ListenAndServe(ctx, cfg.Listen)
}

// saveSink persists save frames passing through a gateway's outbound
// router. All other frame types flow through untouched.
type saveSink struct {
	st     *store.Store
	logger *slog.Logger
}

func (s saveSink) Send(ctx context.Context, env host.Envelope) error {
	if env.Type != host.MsgSave {
		return nil
	}
	var p host.SavePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("vedit: decode save payload: %w", err)
	}
	if p.VariantName == "" {
		return nil
	}
	experiment := p.ExperimentName
	if experiment == "" {
		experiment = "default"
	}
	if err := s.st.Save(ctx, experiment, p.VariantName, p.Changes); err != nil {
		return fmt.Errorf("vedit: persist variant: %w", err)
	}
	s.logger.Info("vedit: variant persisted",
		"experiment", experiment,
		"variant", p.VariantName,
		"changes", len(p.Changes))
	return nil
}

func (s saveSink) Close() error { return nil }
