package auditor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"web_accessibility_analyzer/internal/domain/adaptors"
	"web_accessibility_analyzer/internal/domain/models"
	"web_accessibility_analyzer/internal/pkg/errors"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultAxeScriptURL = "https://cdn.jsdelivr.net/npm/axe-core@4.10.2/axe.min.js"

	// networkIdleWait bounds the wait for a quiet page when the caller set
	// no deadline. A page that never settles fails the audit.
	networkIdleWait = 60 * time.Second

	axeRunScript = `axe.run(document, {resultTypes: ['violations', 'incomplete', 'passes']})
	.then(r => ({violations: r.violations, incomplete: r.incomplete, passes: r.passes}))`
)

type BrowserConfig struct {
	ChromePath   string
	AxeScriptURL string
}

// BrowserAuditor runs axe-core inside headless Chrome. Each session owns its
// own browser process.
type BrowserAuditor struct {
	log       *log.Logger
	webClient adaptors.WebClient
	cfg       BrowserConfig

	mu        sync.Mutex
	axeSource string
}

func NewBrowserAuditor(log *log.Logger, webClient adaptors.WebClient, cfg BrowserConfig) *BrowserAuditor {
	if cfg.AxeScriptURL == "" {
		cfg.AxeScriptURL = DefaultAxeScriptURL
	}
	return &BrowserAuditor{
		log:       log,
		webClient: webClient,
		cfg:       cfg,
	}
}

// axeScript returns the axe-core source, downloading it on first use. A failed
// download is retried by the next caller.
func (a *BrowserAuditor) axeScript(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.axeSource != "" {
		return a.axeSource, nil
	}

	body, code, err := a.webClient.Do(ctx, a.cfg.AxeScriptURL, http.MethodGet)
	if err != nil {
		return "", errors.Wrap(err, `failed to download axe-core`)
	}
	if code != http.StatusOK || len(body) == 0 {
		return "", errors.Errorf(`axe-core download responded with status %d`, code)
	}
	a.axeSource = string(body)
	a.log.WithField("url", a.cfg.AxeScriptURL).Info(`axe-core source cached`)
	return a.axeSource, nil
}

func (a *BrowserAuditor) NewSession(ctx context.Context) (adaptors.AuditSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)
	if a.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(a.cfg.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(a.log.Debugf),
		chromedp.WithErrorf(a.log.Debugf),
	)

	// an empty Run launches the browser so start-up failures surface here
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, errors.Wrap(err, `failed to launch browser`)
	}

	return &browserSession{
		auditor:       a,
		ctx:           browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

type browserSession struct {
	auditor       *BrowserAuditor
	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	closeOnce     sync.Once
}

func (s *browserSession) Audit(ctx context.Context, pageURL string) (*models.AuditResult, error) {
	a := s.auditor
	logger := a.log.WithField("url", pageURL)
	logger.Debug(`browser audit started...`)

	if err := validatePageURL(pageURL); err != nil {
		return nil, err
	}

	script, err := a.axeScript(ctx)
	if err != nil {
		return nil, err
	}

	// tab operations run on the browser context; the caller's deadline and
	// cancellation are carried over onto it
	tabCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	idle := make(chan struct{})
	var idleOnce sync.Once
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			idleOnce.Do(func() { close(idle) })
		}
	})

	if err := chromedp.Run(tabCtx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(pageURL),
		waitForIdle(idle, networkIdleWait),
	); err != nil {
		return nil, errors.Wrap(err, `failed to load page`)
	}

	var raw []byte
	if err := chromedp.Run(tabCtx,
		chromedp.Evaluate(script, nil),
		chromedp.Evaluate(axeRunScript, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	); err != nil {
		return nil, errors.Wrap(err, `failed to run axe-core`)
	}

	result, err := decodeAxeResult(raw)
	if err != nil {
		return nil, err
	}
	logger.Debugf(`browser audit finished with %d issues`, result.IssueCount())
	return result, nil
}

// Close terminates the browser process. It is safe to call more than once.
func (s *browserSession) Close() error {
	s.closeOnce.Do(func() {
		s.browserCancel()
		s.allocCancel()
	})
	return nil
}

// waitForIdle blocks until idle is closed. It fails when limit elapses or
// ctx ends first, so a partly rendered page is never audited.
func waitForIdle(idle <-chan struct{}, limit time.Duration) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		select {
		case <-idle:
			return nil
		case <-timer.C:
			return errors.Errorf(`page did not reach network idle within %s`, limit)
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), `page did not reach network idle`)
		}
	}
}

func decodeAxeResult(raw []byte) (*models.AuditResult, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New(`axe-core returned no result`)
	}
	result := &models.AuditResult{}
	if err := json.Unmarshal(raw, result); err != nil {
		return nil, errors.Wrap(err, `failed to decode axe-core result`)
	}
	return result.Normalize(), nil
}
