package render

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"subforge/internal/logging"
	"subforge/internal/services"
)

// PageOpener creates render surfaces. The workflow holds one opener and opens
// a fresh page per operation.
type PageOpener interface {
	Open(ctx context.Context, width, height int) (Page, error)
}

// ProcessHook observes browser processes right after they start, so the
// operation registry can track them for forced termination.
type ProcessHook func(*os.Process)

// BrowserOpener renders subtitle states with a headless Chromium-compatible
// browser. Each screenshot is one short-lived browser invocation against a
// generated HTML document, which keeps the surface free of any long-lived
// remote-control protocol.
type BrowserOpener struct {
	binary string
	logger *slog.Logger
	hook   ProcessHook
}

// BrowserOption customizes the opener.
type BrowserOption func(*BrowserOpener)

// WithBrowserProcessHook registers a hook observing each spawned browser
// process.
func WithBrowserProcessHook(hook ProcessHook) BrowserOption {
	return func(b *BrowserOpener) {
		b.hook = hook
	}
}

// NewBrowserOpener constructs an opener for the given browser binary.
func NewBrowserOpener(binary string, logger *slog.Logger, opts ...BrowserOption) *BrowserOpener {
	if strings.TrimSpace(binary) == "" {
		binary = "chromium"
	}
	opener := &BrowserOpener{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "browser"),
	}
	for _, opt := range opts {
		opt(opener)
	}
	return opener
}

// Open creates a page backed by a temp directory for generated HTML.
func (b *BrowserOpener) Open(_ context.Context, width, height int) (Page, error) {
	dir, err := os.MkdirTemp("", "subforge-page-")
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "render", "open page",
			"Could not create page temp directory", err)
	}
	return &browserPage{
		opener: b,
		dir:    dir,
		width:  width,
		height: height,
	}, nil
}

type browserPage struct {
	opener *BrowserOpener
	dir    string
	width  int
	height int

	mu     sync.Mutex
	text   string
	closed bool
}

// pageTemplate draws white, black-outlined subtitle text near the bottom of a
// transparent viewport.
const pageTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><style>
html, body { margin: 0; padding: 0; background: transparent; width: 100%%; height: 100%%; overflow: hidden; }
#sub {
  position: absolute; bottom: 6%%; left: 5%%; right: 5%%;
  text-align: center; white-space: pre-wrap;
  font-family: "Noto Sans", "DejaVu Sans", sans-serif;
  font-size: 2.6vw; font-weight: 600; line-height: 1.35; color: #fff;
  text-shadow: -2px -2px 0 #000, 2px -2px 0 #000, -2px 2px 0 #000, 2px 2px 0 #000, 0 0 6px rgba(0,0,0,.8);
}
</style></head>
<body><div id="sub">%s</div></body>
</html>`

func (p *browserPage) SetText(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return services.Wrap(services.ErrValidation, "render", "set text", "Page already closed", nil)
	}
	p.text = text
	return nil
}

func (p *browserPage) Screenshot(ctx context.Context, dest string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return services.Wrap(services.ErrValidation, "render", "screenshot", "Page already closed", nil)
	}
	text := p.text
	p.mu.Unlock()

	doc := fmt.Sprintf(pageTemplate, html.EscapeString(text))
	htmlPath := filepath.Join(p.dir, "state.html")
	if err := os.WriteFile(htmlPath, []byte(doc), 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "screenshot",
			"Could not write page document", err)
	}

	args := []string{
		"--headless",
		"--disable-gpu",
		"--no-sandbox",
		"--hide-scrollbars",
		"--default-background-color=00000000",
		fmt.Sprintf("--window-size=%d,%d", p.width, p.height),
		"--screenshot=" + dest,
		"file://" + htmlPath,
	}
	cmd := exec.CommandContext(ctx, p.opener.binary, args...)
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "screenshot",
			fmt.Sprintf("Could not start %s", p.opener.binary), err)
	}
	if p.opener.hook != nil {
		p.opener.hook(cmd.Process)
	}
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "render", "screenshot",
			"Browser screenshot failed", err)
	}
	if _, err := os.Stat(dest); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "screenshot",
			"Browser produced no screenshot", err)
	}
	return nil
}

func (p *browserPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return os.RemoveAll(p.dir)
}
