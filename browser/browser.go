// Package browser drives a live Chrome page through Rod and replays
// change lists into it. It backs the preview-url mode of the CLI: load a
// page, apply a saved variant, read the mutated DOM back.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures the driver.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty launches a local headless Chrome.
	RemoteURL string

	// Stealth opens pages with automation fingerprints masked. Some
	// production pages refuse to render for naked headless Chrome.
	Stealth bool

	// NavTimeout bounds navigation plus load. Default: 30s.
	NavTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Driver owns one Chrome connection.
type Driver struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewDriver creates a driver. Call Start before opening pages.
func NewDriver(cfg Config) *Driver {
	cfg.defaults()
	return &Driver{cfg: cfg}
}

// Start launches Chrome, or connects to RemoteURL when set.
func (d *Driver) Start(ctx context.Context) error {
	wsURL := d.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		d.lnch = l
		d.cfg.Logger.Info("browser: launched local chrome", "url", wsURL)
	} else {
		d.cfg.Logger.Info("browser: connecting to remote", "url", wsURL)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		d.cfg.Logger.Warn("browser: ignore cert errors failed", "error", err)
	}
	d.browser = b
	return nil
}

// Open navigates a fresh page to pageURL and waits for load.
func (d *Driver) Open(ctx context.Context, pageURL string) (*rod.Page, error) {
	if d.browser == nil {
		return nil, fmt.Errorf("browser: driver not started")
	}

	var page *rod.Page
	var err error
	if d.cfg.Stealth {
		page, err = stealth.Page(d.browser)
	} else {
		page, err = d.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, d.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		d.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return page, nil
}

// HTML serialises the page's current DOM.
func (d *Driver) HTML(ctx context.Context, page *rod.Page) (string, error) {
	res, err := page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: read DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Close shuts down Chrome.
func (d *Driver) Close() error {
	if d.browser != nil {
		_ = d.browser.Close()
		d.browser = nil
	}
	if d.lnch != nil {
		d.lnch.Cleanup()
		d.lnch = nil
	}
	return nil
}
