package auditor

import (
	"bytes"
	"context"
	"net/http"
	"net/url"

	"web_accessibility_analyzer/internal/domain/adaptors"
	"web_accessibility_analyzer/internal/domain/models"
	"web_accessibility_analyzer/internal/pkg/errors"
	"web_accessibility_analyzer/internal/pkg/worker_pool"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

const defaultRuleWorkers = 3

// StaticAuditor fetches the raw page markup and evaluates a fixed rule set
// against it. It needs no browser, so scripts on the page never run.
type StaticAuditor struct {
	log       *log.Logger
	webClient adaptors.WebClient
	workers   int
	rules     []rule
}

func NewStaticAuditor(log *log.Logger, webClient adaptors.WebClient, workers int) *StaticAuditor {
	if workers < 1 {
		workers = defaultRuleWorkers
	}
	return &StaticAuditor{
		log:       log,
		webClient: webClient,
		workers:   workers,
		rules:     defaultRules,
	}
}

// NewSession starts a worker pool that evaluates rules for the session. The
// pool is released by Close.
func (a *StaticAuditor) NewSession(ctx context.Context) (adaptors.AuditSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, `audit session not started`)
	}
	poolCtx, cancel := context.WithCancel(context.Background())
	return &staticSession{
		auditor: a,
		pool:    worker_pool.NewWorkerPool(poolCtx, a.workers, len(a.rules), a.log),
		cancel:  cancel,
	}, nil
}

// staticSession is not safe for concurrent Audit calls.
type staticSession struct {
	auditor *StaticAuditor
	pool    *worker_pool.WorkerPool
	cancel  context.CancelFunc
}

func (s *staticSession) Audit(ctx context.Context, pageURL string) (*models.AuditResult, error) {
	a := s.auditor
	a.log.WithField("url", pageURL).Debug(`static audit started...`)

	if err := validatePageURL(pageURL); err != nil {
		return nil, err
	}

	body, code, err := a.webClient.Do(ctx, pageURL, http.MethodGet)
	if err != nil {
		return nil, errors.Wrap(err, `failed to get web page`)
	}
	if code != http.StatusOK {
		return nil, errors.Errorf(`web page responded with status %d`, code)
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, `failed to parse html`)
	}

	for _, r := range a.rules {
		r := r
		if err := s.pool.Submit(r.id, func(ctx context.Context) (any, error) {
			return r.check(doc), nil
		}); err != nil {
			return nil, errors.Wrap(err, `failed to schedule rule`)
		}
	}

	outcomes := make(map[string]outcome, len(a.rules))
	for range a.rules {
		select {
		case res, ok := <-s.pool.ResultsCh:
			if !ok {
				return nil, errors.New(`rule workers stopped`)
			}
			if res.Err != nil {
				return nil, errors.Wrap(res.Err, `rule `+res.ID+` failed`)
			}
			outcomes[res.ID] = res.Result.(outcome)
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), `audit aborted`)
		}
	}

	result := assemble(a.rules, outcomes)
	a.log.WithField("url", pageURL).Debugf(`static audit finished with %d issues`, result.IssueCount())
	return result, nil
}

func (s *staticSession) Close() error {
	s.pool.Stop()
	s.cancel()
	return nil
}

// assemble groups rule outcomes into an axe-shaped result in rule order. A
// rule may appear in more than one group when its nodes disagree.
func assemble(rules []rule, outcomes map[string]outcome) *models.AuditResult {
	result := &models.AuditResult{}
	for _, r := range rules {
		o, ok := outcomes[r.id]
		if !ok {
			continue
		}
		if len(o.violations) > 0 {
			result.Violations = append(result.Violations, r.result(o.violations, r.impact))
		}
		if len(o.incomplete) > 0 {
			result.Incomplete = append(result.Incomplete, r.result(o.incomplete, r.impact))
		}
		if len(o.passes) > 0 {
			result.Passes = append(result.Passes, r.result(o.passes, ""))
		}
	}
	result.Normalize()
	return result
}

func validatePageURL(pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return errors.Wrap(err, `invalid url`)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf(`unsupported url scheme %q`, u.Scheme)
	}
	if u.Host == "" {
		return errors.New(`url has no host`)
	}
	return nil
}
