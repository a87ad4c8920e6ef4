// Package fetch retrieves list resources from the facility-management backend.
//
// One call is one HTTP GET. The response body, whatever its layout, is
// normalized into an ordered slice of records plus optional pagination
// metadata. Fetch never stores anything; callers decide what to do with the
// result.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/abelbrown/fmconsole/internal/logging"
	"github.com/abelbrown/fmconsole/internal/model"
	"github.com/abelbrown/fmconsole/internal/paging"
)

// UserAgent is sent with every request.
const UserAgent = "fmconsole/1.0 (+https://github.com/abelbrown/fmconsole)"

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 32 << 20

// RecordSet is a normalized list response.
type RecordSet struct {
	Records []model.Record
	// Meta is nil when the backend sent no pagination metadata.
	Meta  *paging.Meta
	Shape Shape
}

// Fetcher issues list requests. It is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	validate  *validator.Validate
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client. The client's own timeout
// applies; the one passed to NewFetcher is ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithRateLimit allows rps requests per second with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// NewFetcher creates a Fetcher with the given HTTP client timeout.
// By default requests are limited to 4 per second with a burst of 4.
func NewFetcher(timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(4), 4),
		validate:  newValidator(),
		userAgent: UserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// listRequest is what gets validated before any I/O.
type listRequest struct {
	BaseURL string    `json:"base_url" validate:"required,http_url"`
	Path    string    `json:"path" validate:"required"`
	Auth    AuthStyle `json:"auth" validate:"oneof=bearer query none"`
	Token   string    `json:"token" validate:"required_unless=Auth none"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names, which match the config file.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that rc and ep can produce a request.
func (f *Fetcher) Validate(rc RequestContext, ep Endpoint) error {
	req := listRequest{
		BaseURL: NormalizeBaseURL(rc.BaseURL),
		Path:    strings.TrimSpace(ep.Path),
		Auth:    ep.authStyle(),
		Token:   strings.TrimSpace(rc.Token),
	}
	if err := f.validate.Struct(req); err != nil {
		return &Error{Kind: KindValidation, Err: err}
	}
	return nil
}

// FetchList performs one GET for ep with params and normalizes the response.
//
// Context cancellation is returned as ctx.Err(); every other failure is an
// *Error.
func (f *Fetcher) FetchList(ctx context.Context, rc RequestContext, ep Endpoint, params url.Values) (*RecordSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.Validate(rc, ep); err != nil {
		return nil, err
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// Wait also fails when the deadline is closer than the next token.
			return nil, context.DeadlineExceeded
		}
	}

	rawURL := BuildURL(rc, ep, params)
	shownURL := redact(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindValidation, URL: shownURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if ep.authStyle() == AuthBearer {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(rc.Token))
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logging.Warn("fetch: request failed", "endpoint", ep.Name, "url", shownURL, "request_id", requestID, "error", err)
		return nil, &Error{Kind: KindNetwork, URL: shownURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindNetwork, URL: shownURL, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Warn("fetch: HTTP error", "endpoint", ep.Name, "url", shownURL, "status", resp.StatusCode, "request_id", requestID)
		return nil, &Error{Kind: KindHTTP, StatusCode: resp.StatusCode, URL: shownURL, Err: errors.New(statusText(resp, body))}
	}

	doc, err := model.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindParse, URL: shownURL, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	records, shape, err := normalize(doc, ep)
	if err != nil {
		return nil, &Error{Kind: KindParse, URL: shownURL, Err: err}
	}

	logging.Debug("fetch: list loaded",
		"endpoint", ep.Name,
		"records", len(records),
		"shape", shape,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"request_id", requestID,
	)

	return &RecordSet{
		Records: records,
		Meta:    extractMeta(doc),
		Shape:   shape,
	}, nil
}

// statusText prefers a backend-provided error message over the bare status.
func statusText(resp *http.Response, body []byte) string {
	if doc, err := model.Decode(bytes.NewReader(body)); err == nil {
		if obj, ok := doc.(map[string]any); ok {
			for _, key := range []string{"error", "message", "errors"} {
				if s := model.Text(obj[key]); s != "" {
					return s
				}
			}
		}
	}
	return resp.Status
}
