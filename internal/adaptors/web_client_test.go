package adaptors

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// RoundTripFunc lets us mock http.RoundTripper easily.
type RoundTripFunc func(req *http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubClient(logger *log.Logger, fn RoundTripFunc) *WebClient {
	return &WebClient{
		client: &http.Client{Timeout: time.Second, Transport: fn},
		log:    logger,
	}
}

func TestWebClient_Do(t *testing.T) {
	logger := log.New()
	ctx := context.Background()

	cases := []struct {
		name     string
		url      string
		setup    func() *WebClient
		wantBody string
		wantCode int
		wantErr  bool
	}{
		{
			name: "success",
			url:  "http://example.com",
			setup: func() *WebClient {
				return stubClient(logger, func(req *http.Request) (*http.Response, error) {
					assert.Contains(t, req.Header.Get("User-Agent"), "a11y-analyzer")
					return &http.Response{
						StatusCode: http.StatusOK,
						Body:       io.NopCloser(strings.NewReader("<html></html>")),
						Header:     make(http.Header),
					}, nil
				})
			},
			wantBody: "<html></html>",
			wantCode: http.StatusOK,
		},
		{
			name: "error status is returned, not failed",
			url:  "http://example.com/missing",
			setup: func() *WebClient {
				return stubClient(logger, func(req *http.Request) (*http.Response, error) {
					return &http.Response{
						StatusCode: http.StatusNotFound,
						Body:       io.NopCloser(strings.NewReader("not found")),
						Header:     make(http.Header),
					}, nil
				})
			},
			wantBody: "not found",
			wantCode: http.StatusNotFound,
		},
		{
			name: "network error",
			url:  "http://example.com",
			setup: func() *WebClient {
				return stubClient(logger, func(req *http.Request) (*http.Response, error) {
					return nil, errors.New("network failure")
				})
			},
			wantErr: true,
		},
		{
			name: "invalid URL",
			url:  "http://[::1]:namedport",
			setup: func() *WebClient {
				return NewWebClient(time.Second, logger)
			},
			wantErr: true,
		},
		{
			name: "read body error",
			url:  "http://example.com",
			setup: func() *WebClient {
				return stubClient(logger, func(req *http.Request) (*http.Response, error) {
					return &http.Response{
						StatusCode: http.StatusOK,
						Body:       errReadCloser{},
						Header:     make(http.Header),
					}, nil
				})
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, code, err := tc.setup().Do(ctx, tc.url, http.MethodGet)

			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantBody, string(body))
			assert.Equal(t, tc.wantCode, code)
		})
	}
}

// errReadCloser is an io.ReadCloser that always errors on Read.
type errReadCloser struct{}

func (e errReadCloser) Read(p []byte) (int, error) {
	return 0, errors.New("read failed")
}
func (e errReadCloser) Close() error {
	return nil
}
