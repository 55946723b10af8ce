// Package browser attaches to the user's running Chrome over the DevTools
// protocol. Detaching drops the connection only; tabs and the browser stay open.
package browser

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"TruthFilter/internal/ports"
)

const (
	// DefaultEndpoint is the remote debugging address Chrome is started with.
	DefaultEndpoint = "http://127.0.0.1:9222"

	stealthScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

	fetchScript = `(async () => {
	const resp = await fetch(%s);
	if (!resp.ok) throw new Error('HTTP ' + resp.status);
	const blob = await resp.blob();
	return await new Promise((resolve, reject) => {
		const reader = new FileReader();
		reader.onload = () => resolve(reader.result);
		reader.onerror = () => reject(reader.error);
		reader.readAsDataURL(blob);
	});
})()`

	wheelX = 400
	wheelY = 400
)

// ErrDetached is returned by operations on a detached session.
var ErrDetached = errors.New("browser session detached")

// Browser connects to a remote debugging endpoint.
type Browser struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.Browser = (*Browser)(nil)

// New builds a browser port for endpoint (http://host:port or ws://host:port).
func New(endpoint string, logger *slog.Logger) *Browser {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Browser{
		endpoint: httpEndpoint(endpoint),
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// Attach verifies the endpoint answers and prepares a remote allocator.
func (b *Browser) Attach(ctx context.Context) (ports.BrowserSession, error) {
	var version struct {
		Browser string `json:"Browser"`
	}
	if err := b.devtools(ctx, http.MethodGet, "/json/version", &version); err != nil {
		return nil, fmt.Errorf("connect %s: %w", b.endpoint, err)
	}
	b.debug("attached to browser", "endpoint", b.endpoint, "version", version.Browser)

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.WithoutCancel(ctx), b.endpoint)
	return &session{browser: b, allocCtx: allocCtx, allocCancel: allocCancel}, nil
}

func (b *Browser) debug(msg string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

type session struct {
	browser     *Browser
	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu        sync.Mutex
	tabCancel context.CancelFunc
	detached  bool
}

// AcquireTab reuses a tab on one of domains or opens startURL in a new one.
func (s *session) AcquireTab(ctx context.Context, domains []string, startURL string) (ports.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return nil, ErrDetached
	}

	targets, err := s.browser.listTargets(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := pickTarget(targets, domains)
	if ok {
		s.browser.debug("reusing tab", "url", t.URL)
	} else {
		if t, err = s.browser.openTarget(ctx, startURL); err != nil {
			return nil, fmt.Errorf("open tab: %w", err)
		}
		s.browser.debug("opened tab", "url", startURL)
	}

	if s.tabCancel != nil {
		s.tabCancel()
	}
	// A first context attached by target id is detached, not closed, on cancel.
	tabCtx, tabCancel := chromedp.NewContext(s.allocCtx, chromedp.WithTargetID(target.ID(t.ID)))
	s.tabCancel = tabCancel

	p := &page{tabCtx: tabCtx}
	if err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := emulation.SetFocusEmulationEnabled(true).Do(ctx); err != nil {
			s.browser.debug("focus emulation unavailable", "error", err)
		}
		if _, err := cdppage.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
			s.browser.debug("stealth script rejected", "error", err)
		}
		return cdppage.BringToFront().Do(ctx)
	})); err != nil {
		return nil, fmt.Errorf("attach tab: %w", err)
	}
	return p, nil
}

// Detach releases the connection. It never calls chromedp.Cancel, which
// would close the user's browser.
func (s *session) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return nil
	}
	s.detached = true
	if s.tabCancel != nil {
		s.tabCancel()
	}
	s.allocCancel()
	return nil
}

type page struct {
	tabCtx context.Context
}

var _ ports.Page = (*page)(nil)

// run executes actions on the tab, bounded by the caller's ctx.
func (p *page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (p *page) URL(ctx context.Context) (string, error) {
	var loc string
	err := p.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (p *page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *page) Reload(ctx context.Context) error {
	return p.run(ctx, chromedp.Reload())
}

// WaitVisible waits for selector; timeout 0 waits until ctx ends.
func (p *page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *page) Evaluate(ctx context.Context, expression string, out any) error {
	if out == nil {
		var discard any
		out = &discard
	}
	return p.run(ctx, chromedp.Evaluate(expression, out, awaitPromise))
}

// Fetch downloads url with the page's own cookies and returns the body.
func (p *page) Fetch(ctx context.Context, url string) ([]byte, error) {
	literal, err := json.Marshal(url)
	if err != nil {
		return nil, err
	}
	var dataURL string
	if err := p.Evaluate(ctx, fmt.Sprintf(fetchScript, literal), &dataURL); err != nil {
		return nil, fmt.Errorf("in-page fetch: %w", err)
	}
	return decodeDataURL(dataURL)
}

func (p *page) ScrollBy(ctx context.Context, dy int) error {
	return p.run(ctx, input.DispatchMouseEvent(input.MouseWheel, wheelX, wheelY).
		WithDeltaX(0).
		WithDeltaY(float64(dy)))
}

func (p *page) QueryAll(ctx context.Context, selector string) ([]ports.Element, error) {
	return p.queryAll(ctx, selector)
}

func (p *page) queryAll(ctx context.Context, selector string, opts ...chromedp.QueryOption) ([]ports.Element, error) {
	var nodes []*cdp.Node
	opts = append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, opts...)
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, err
	}
	out := make([]ports.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{page: p, node: n})
	}
	return out, nil
}

type element struct {
	page *page
	node *cdp.Node
}

var _ ports.Element = (*element)(nil)

func (e *element) ids() []cdp.NodeID { return []cdp.NodeID{e.node.NodeID} }

func (e *element) QueryAll(ctx context.Context, selector string) ([]ports.Element, error) {
	return e.page.queryAll(ctx, selector, chromedp.FromNode(e.node))
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := e.page.run(ctx, chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID))
	return value, ok, err
}

func (e *element) OuterHTML(ctx context.Context) (string, error) {
	var html string
	err := e.page.run(ctx, chromedp.OuterHTML(e.ids(), &html, chromedp.ByNodeID))
	return html, err
}

func (e *element) NaturalWidth(ctx context.Context) (int, error) {
	var width int
	err := e.page.run(ctx, chromedp.JavascriptAttribute(e.ids(), "naturalWidth", &width, chromedp.ByNodeID))
	return width, err
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.page.run(ctx, chromedp.ScrollIntoView(e.ids(), chromedp.ByNodeID))
}

// Screenshot captures the element and re-encodes it as JPEG.
func (e *element) Screenshot(ctx context.Context, quality int) ([]byte, error) {
	var png []byte
	if err := e.page.run(ctx, chromedp.Screenshot(e.ids(), &png, chromedp.ByNodeID)); err != nil {
		return nil, err
	}
	return toJPEG(png, quality)
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

func decodeDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, fmt.Errorf("unexpected fetch result")
	}
	meta, payload, ok := strings.Cut(dataURL, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data url")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return data, nil
}

func toJPEG(raw []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
