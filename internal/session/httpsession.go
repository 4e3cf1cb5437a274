package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Compile-time interface checks.
var (
	_ Opener  = (*HTTPOpener)(nil)
	_ Session = (*httpSession)(nil)
)

// HTTPOpener opens sessions against an HTTP session relay. The relay is the
// external collaborator that drives the actual agent UI; this client only
// speaks its JSON API:
//
//	POST   {endpoint}/v1/sessions                 -> {"id": "..."}
//	POST   {endpoint}/v1/sessions/{id}/prompt     <- {"prompt": "..."}
//	GET    {endpoint}/v1/sessions/{id}/text?point=p -> {"text": "..."}
//	DELETE {endpoint}/v1/sessions/{id}
type HTTPOpener struct {
	http      *http.Client
	endpoints map[string]string // agent name -> relay base URL
}

// OpenerOption configures an HTTPOpener.
type OpenerOption func(*HTTPOpener)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) OpenerOption {
	return func(o *HTTPOpener) {
		o.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) OpenerOption {
	return func(o *HTTPOpener) {
		o.http = hc
	}
}

// NewHTTPOpener creates an HTTPOpener for the given agent -> relay endpoint
// mapping.
func NewHTTPOpener(endpoints map[string]string, opts ...OpenerOption) *HTTPOpener {
	o := &HTTPOpener{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoints: endpoints,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open creates a relay session for the named agent.
func (o *HTTPOpener) Open(ctx context.Context, agent string) (Session, error) {
	base, ok := o.endpoints[agent]
	if !ok {
		return nil, fmt.Errorf("session: no endpoint configured for agent %q", agent)
	}

	var created struct {
		ID string `json:"id"`
	}
	body := map[string]string{"agent": agent}
	if err := o.doJSON(ctx, http.MethodPost, base+"/v1/sessions", body, &created); err != nil {
		return nil, fmt.Errorf("session: open for agent %q: %w", agent, err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("session: relay returned empty session id for agent %q", agent)
	}

	return &httpSession{
		opener: o,
		base:   base,
		id:     created.ID,
	}, nil
}

// doJSON issues a request with an optional JSON body and decodes a JSON
// response into out (which may be nil for empty responses).
func (o *HTTPOpener) doJSON(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, u, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// httpSession is one relay-backed conversation.
type httpSession struct {
	opener *HTTPOpener
	base   string
	id     string
	closed bool
}

// Submit sends the prompt to the relay session.
func (s *httpSession) Submit(ctx context.Context, prompt string) error {
	if s.closed {
		return ErrSessionClosed
	}
	body := map[string]string{"prompt": prompt}
	return s.opener.doJSON(ctx, http.MethodPost, s.url("/prompt"), body, nil)
}

// BestText polls every extraction point and returns the longest non-empty
// text. Individual point failures are tolerated as long as at least one
// point responds; the call fails only when every point errors.
func (s *httpSession) BestText(ctx context.Context, points []string) (string, error) {
	if s.closed {
		return "", ErrSessionClosed
	}

	var (
		best    string
		lastErr error
		polled  bool
	)
	for _, point := range points {
		var got struct {
			Text string `json:"text"`
		}
		u := s.url("/text") + "?point=" + url.QueryEscape(point)
		if err := s.opener.doJSON(ctx, http.MethodGet, u, nil, &got); err != nil {
			lastErr = err
			continue
		}
		polled = true
		if len(got.Text) > len(best) {
			best = got.Text
		}
	}

	if !polled && lastErr != nil {
		return "", fmt.Errorf("session: poll failed on all %d extraction points: %w", len(points), lastErr)
	}
	return best, nil
}

// Close deletes the relay session. Errors from the relay are ignored; the
// session is considered closed either way.
func (s *httpSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.opener.doJSON(ctx, http.MethodDelete, s.url(""), nil, nil)
	return nil
}

func (s *httpSession) url(suffix string) string {
	return s.base + "/v1/sessions/" + s.id + suffix
}
