package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// PageContext is an isolated browsing context (own cookies and storage)
// that renders pages one at a time.
type PageContext interface {
	Render(ctx context.Context, rawURL string) (*types.Response, error)
	Close() error
}

// Browser owns a single Chromium process shared by every website source in
// a run. Each source gets its own incognito context from NewContext.
type Browser struct {
	cfg    *config.Config
	logger *slog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowser returns a Browser that launches Chromium on first use.
func NewBrowser(cfg *config.Config, logger *slog.Logger) *Browser {
	return &Browser{
		cfg:    cfg,
		logger: logger.With("component", "browser"),
	}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New().
		Headless(b.cfg.Browser.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if b.cfg.Browser.BinPath != "" {
		l = l.Bin(b.cfg.Browser.BinPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	b.launcher = l
	b.browser = browser
	b.logger.Info("browser ready", "headless", b.cfg.Browser.Headless, "stealth", b.cfg.Browser.Stealth)
	return browser, nil
}

// NewContext creates an isolated incognito context. The caller must Close it.
func (b *Browser) NewContext(ctx context.Context) (PageContext, error) {
	root, err := b.connect()
	if err != nil {
		return nil, err
	}
	incognito, err := root.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("create incognito context: %w", err)
	}
	return &browserContext{
		browser: incognito,
		cfg:     b.cfg,
		logger:  b.logger,
	}, nil
}

// Close shuts down Chromium if it was launched.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.launcher.Kill()
	b.browser = nil
	b.launcher = nil
	return err
}

type browserContext struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     *config.Config
	logger  *slog.Logger
}

func (c *browserContext) ensurePage() (*rod.Page, error) {
	if c.page != nil {
		return c.page, nil
	}
	var (
		page *rod.Page
		err  error
	)
	if c.cfg.Browser.Stealth {
		page, err = stealth.Page(c.browser)
	} else {
		page, err = c.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             c.cfg.Browser.ViewportWidth,
		Height:            c.cfg.Browser.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		c.logger.Warn("failed to set viewport", "error", err)
	}
	c.page = page
	return page, nil
}

// Render navigates to rawURL, waits for DOMContentLoaded plus the settle
// delay, and returns the rendered HTML.
func (c *browserContext) Render(ctx context.Context, rawURL string) (*types.Response, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	req.Purpose = "render"

	page, err := c.ensurePage()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}

	start := time.Now()
	p := page.Context(ctx).Timeout(c.cfg.Scrape.PageTimeout)
	defer p.CancelTimeout()
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(rawURL); err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("navigate: %w", err)}
	}
	wait()

	if d := c.cfg.Scrape.SettleDelay; d > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("read html: %w", err)}
	}
	finalURL := rawURL
	if info, err := page.Info(); err == nil && info != nil && info.URL != "" {
		finalURL = info.URL
	}

	duration := time.Since(start)
	c.logger.Debug("render complete", "url", rawURL, "final_url", finalURL, "size", len(html), "duration", duration)
	return types.NewRenderedResponse(req, []byte(html), finalURL, duration), nil
}

// Close disposes the page and the incognito context.
func (c *browserContext) Close() error {
	if c.page != nil {
		_ = c.page.Close()
	}
	return c.browser.Close()
}
