// Package portstest provides in-memory fakes of the browser and model ports.
package portstest

import (
	"context"
	"errors"
	"sync"
	"time"

	"TruthFilter/internal/ports"
)

// Element is a scripted DOM node.
type Element struct {
	Attrs      map[string]string
	HTML       string
	Width      int
	Shot       []byte
	ShotErr    error
	Children   map[string][]*Element
	PanicOnGet bool

	mu       sync.Mutex
	Scrolled int
	Quality  int
}

var _ ports.Element = (*Element)(nil)

func (e *Element) QueryAll(_ context.Context, selector string) ([]ports.Element, error) {
	return toPorts(e.Children[selector]), nil
}

func (e *Element) Attribute(_ context.Context, name string) (string, bool, error) {
	if e.PanicOnGet {
		panic("detached node")
	}
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *Element) OuterHTML(_ context.Context) (string, error) {
	if e.PanicOnGet {
		panic("detached node")
	}
	return e.HTML, nil
}

func (e *Element) NaturalWidth(context.Context) (int, error) { return e.Width, nil }

func (e *Element) ScrollIntoView(context.Context) error {
	e.mu.Lock()
	e.Scrolled++
	e.mu.Unlock()
	return nil
}

func (e *Element) Screenshot(_ context.Context, quality int) ([]byte, error) {
	e.mu.Lock()
	e.Quality = quality
	e.mu.Unlock()
	return e.Shot, e.ShotErr
}

// Page is a scripted tab. Children maps selectors to elements; Rounds, when
// set, replaces Children[selector] per QueryAll call to emulate scrolling.
type Page struct {
	Location  string
	Children  map[string][]*Element
	Rounds    map[string][][]*Element
	Payloads  map[string][]byte
	FetchErr  error
	WaitErr   map[string][]error
	EvalFunc  func(expression string, out any) error
	mu        sync.Mutex
	Navigated []string
	Reloads   int
	Scrolls   []int
	Waits     []time.Duration
	queries   map[string]int
}

var _ ports.Page = (*Page)(nil)

func (p *Page) QueryAll(_ context.Context, selector string) ([]ports.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rounds, ok := p.Rounds[selector]; ok {
		if p.queries == nil {
			p.queries = map[string]int{}
		}
		i := p.queries[selector]
		p.queries[selector]++
		if i >= len(rounds) {
			i = len(rounds) - 1
		}
		if i < 0 {
			return nil, nil
		}
		return toPorts(rounds[i]), nil
	}
	return toPorts(p.Children[selector]), nil
}

func (p *Page) URL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Location, nil
}

func (p *Page) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigated = append(p.Navigated, url)
	p.Location = url
	return nil
}

func (p *Page) Reload(context.Context) error {
	p.mu.Lock()
	p.Reloads++
	p.mu.Unlock()
	return nil
}

// WaitVisible pops scripted errors for the selector, succeeding once exhausted.
func (p *Page) WaitVisible(_ context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Waits = append(p.Waits, timeout)
	errs := p.WaitErr[selector]
	if len(errs) == 0 {
		return nil
	}
	err := errs[0]
	p.WaitErr[selector] = errs[1:]
	return err
}

func (p *Page) Evaluate(_ context.Context, expression string, out any) error {
	if p.EvalFunc != nil {
		return p.EvalFunc(expression, out)
	}
	return nil
}

func (p *Page) Fetch(_ context.Context, url string) ([]byte, error) {
	if p.FetchErr != nil {
		return nil, p.FetchErr
	}
	data, ok := p.Payloads[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (p *Page) ScrollBy(_ context.Context, dy int) error {
	p.mu.Lock()
	p.Scrolls = append(p.Scrolls, dy)
	p.mu.Unlock()
	return nil
}

// Browser hands out a single scripted page.
type Browser struct {
	Page      *Page
	AttachErr error
	TabErr    error

	mu       sync.Mutex
	Detached int
	Domains  []string
	StartURL string
}

var _ ports.Browser = (*Browser)(nil)

func (b *Browser) Attach(context.Context) (ports.BrowserSession, error) {
	if b.AttachErr != nil {
		return nil, b.AttachErr
	}
	return &session{browser: b}, nil
}

type session struct {
	browser *Browser
}

func (s *session) AcquireTab(_ context.Context, domains []string, startURL string) (ports.Page, error) {
	s.browser.mu.Lock()
	defer s.browser.mu.Unlock()
	s.browser.Domains = domains
	s.browser.StartURL = startURL
	if s.browser.TabErr != nil {
		return nil, s.browser.TabErr
	}
	return s.browser.Page, nil
}

func (s *session) Detach() error {
	s.browser.mu.Lock()
	s.browser.Detached++
	s.browser.mu.Unlock()
	return nil
}

func toPorts(elements []*Element) []ports.Element {
	out := make([]ports.Element, 0, len(elements))
	for _, el := range elements {
		out = append(out, el)
	}
	return out
}
