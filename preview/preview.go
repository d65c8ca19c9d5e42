// Package preview resolves real layout geometry and computed style for
// screen documents by rendering them in headless Chrome via Rod. The editor
// uses it to fill descriptor rects; without a prober, descriptors degrade to
// zero rects and inline style only.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/dukes-snr/EazyUi-sub001/editable"
	"github.com/dukes-snr/EazyUi-sub001/safety"
)

// Config configures the prober.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Width and Height are the emulated viewport, matching the device frame
	// the screen is designed for. Defaults: 390x844.
	Width  int
	Height int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = 390
	}
	if c.Height <= 0 {
		c.Height = 844
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Layout is the measured geometry and computed-style subset for one element.
type Layout struct {
	Rect     editable.Rect     `json:"rect"`
	Computed map[string]string `json:"computed"`
}

// Prober renders documents and caches per-uid layout. It implements
// editable.StyleResolver over the last probed document.
type Prober struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page
	layout  map[string]Layout
	closed  bool
}

// New creates a Prober. Call Start to launch Chrome.
func New(cfg Config) *Prober {
	cfg.defaults()
	return &Prober{cfg: cfg, layout: make(map[string]Layout)}
}

// Start launches Chrome (or connects to a remote instance) and prepares a
// blank page with the configured viewport.
func (p *Prober) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("preview: prober is closed")
	}

	wsURL := p.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("preview: launch: %w", err)
		}
		wsURL = u
		p.lnch = l
		p.cfg.Logger.Info("preview: launched local chrome", "url", wsURL)
	} else {
		if err := validateControlURL(wsURL); err != nil {
			return err
		}
		p.cfg.Logger.Info("preview: connecting to remote chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("preview: connect: %w", err)
	}
	p.browser = b

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("preview: open page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             p.cfg.Width,
		Height:            p.cfg.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("preview: set viewport: %w", err)
	}
	p.page = page
	return nil
}

// validateControlURL gates the remote DevTools endpoint through the SSRF
// check, with the ws schemes mapped to their HTTP equivalents. Loopback
// targets are the operator's own browser and pass.
func validateControlURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("preview: control url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	err = safety.ValidateURL(u.String())
	if err == nil {
		return nil
	}
	if errors.Is(err, safety.ErrSSRF) {
		host := u.Hostname()
		if host == "localhost" {
			return nil
		}
		if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
			return nil
		}
	}
	return fmt.Errorf("preview: control url: %w", err)
}

// measureJS walks every element carrying a uid attribute and returns its
// bounding box plus the computed-style subset the descriptor exposes.
const measureJS = `() => {
	const props = ["display", "position", "color", "background-color",
		"font-size", "font-weight", "text-align", "margin", "padding",
		"border-radius", "width", "height"];
	const out = {};
	for (const el of document.querySelectorAll("[data-uid]")) {
		const r = el.getBoundingClientRect();
		const cs = getComputedStyle(el);
		const computed = {};
		for (const prop of props) {
			computed[prop] = cs.getPropertyValue(prop);
		}
		out[el.getAttribute("data-uid")] = {
			rect: {x: r.x, y: r.y, w: r.width, h: r.height},
			computed: computed,
		};
	}
	return JSON.stringify(out);
}`

// Probe renders a document and refreshes the layout cache. The previous
// cache is kept on failure.
func (p *Prober) Probe(ctx context.Context, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.page == nil {
		return fmt.Errorf("preview: prober not started")
	}

	page := p.page.Context(ctx)
	if err := page.SetDocumentContent(content); err != nil {
		return fmt.Errorf("preview: set content: %w", err)
	}
	if err := page.WaitStable(300 * time.Millisecond); err != nil {
		p.cfg.Logger.Debug("preview: wait stable", "error", err)
	}

	res, err := page.Eval(measureJS)
	if err != nil {
		return fmt.Errorf("preview: measure: %w", err)
	}

	layout := make(map[string]Layout)
	if err := json.Unmarshal([]byte(res.Value.Str()), &layout); err != nil {
		return fmt.Errorf("preview: decode measurements: %w", err)
	}
	p.layout = layout
	return nil
}

// ResolvedStyle returns the computed-style subset for a uid, or nil.
func (p *Prober) ResolvedStyle(uid string) map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.layout[uid]; ok {
		return l.Computed
	}
	return nil
}

// BoundingRect returns the measured rect for a uid.
func (p *Prober) BoundingRect(uid string) (editable.Rect, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.layout[uid]
	return l.Rect, ok
}

// Close shuts the page and browser down. Idempotent.
func (p *Prober) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	if p.page != nil {
		if err := p.page.Close(); err != nil {
			p.cfg.Logger.Warn("preview: close page", "error", err)
		}
		p.page = nil
	}
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			p.cfg.Logger.Warn("preview: close browser", "error", err)
		}
		p.browser = nil
	}
	if p.lnch != nil {
		p.lnch.Cleanup()
		p.lnch = nil
	}
	return nil
}

var _ editable.StyleResolver = (*Prober)(nil)
