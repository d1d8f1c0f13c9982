package adaptors

import (
	"context"
	"io"
	"net/http"
	"time"

	"web_accessibility_analyzer/internal/pkg/errors"
	"web_accessibility_analyzer/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// maxBodyBytes caps how much of a page or script is read into memory.
const maxBodyBytes = 10 << 20

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36 a11y-analyzer"

type WebClient struct {
	client *http.Client
	log    *log.Logger
}

func NewWebClient(timeout time.Duration, log *log.Logger) *WebClient {
	rTripper := promhttp.InstrumentRoundTripperDuration(
		metrics.HTTPClientRequestDuration,
		promhttp.InstrumentRoundTripperCounter(metrics.HTTPClientRequestsTotal, http.DefaultTransport))

	return &WebClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: rTripper,
		},
		log: log,
	}
}

func (w *WebClient) Do(ctx context.Context, url string, method string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		w.log.WithError(err).Error(`failed to create request`)
		return nil, 0, errors.Wrap(err, `failed to create request`)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.WithError(err).WithField(`url`, url).Error(`request failed`)
		return nil, 0, errors.Wrap(err, `request failed`)
	}
	defer resp.Body.Close()

	bodyByte, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		w.log.Errorf(`failed to read response body. error: %v`, err)
		return nil, 0, errors.Wrap(err, `failed to read response body`)
	}

	return bodyByte, resp.StatusCode, nil
}
