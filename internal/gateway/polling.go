package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Polling receives frames by HTTP long-polling. Each response carries a
// batch of envelopes and a cursor for the next request.
type Polling struct {
	url    string
	token  string
	wait   time.Duration
	client *http.Client
}

type pollResponse struct {
	Events []json.RawMessage `json:"events"`
	Cursor string            `json:"cursor"`
}

// NewPolling creates a long-poll transport. wait is how long the server may
// hold each request open.
func NewPolling(rawURL, token string, wait time.Duration) *Polling {
	if wait <= 0 {
		wait = 25 * time.Second
	}
	return &Polling{
		url:    rawURL,
		token:  token,
		wait:   wait,
		client: &http.Client{Timeout: wait + 10*time.Second},
	}
}

func (t *Polling) Name() string { return "polling" }

// Open performs a non-blocking first poll so an unreachable endpoint fails
// fast and the next transport can be tried.
func (t *Polling) Open(ctx context.Context) (Stream, error) {
	s := &pollStream{t: t}
	if err := s.poll(ctx, 0); err != nil {
		return nil, err
	}
	return s, nil
}

type pollStream struct {
	t       *Polling
	cursor  string
	pending []json.RawMessage
}

func (s *pollStream) Recv(ctx context.Context) ([]byte, error) {
	for len(s.pending) == 0 {
		if err := s.poll(ctx, s.t.wait); err != nil {
			return nil, err
		}
	}
	next := s.pending[0]
	s.pending = s.pending[1:]
	return next, nil
}

func (s *pollStream) Close() error { return nil }

func (s *pollStream) poll(ctx context.Context, wait time.Duration) error {
	u, err := url.Parse(s.t.url)
	if err != nil {
		return fmt.Errorf("polling: parse url: %w", err)
	}
	q := u.Query()
	if s.cursor != "" {
		q.Set("cursor", s.cursor)
	}
	q.Set("wait", strconv.Itoa(int(wait/time.Second)))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if s.t.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.t.token)
	}

	resp, err := s.t.client.Do(req)
	if err != nil {
		return fmt.Errorf("polling: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("polling: status %d: %s", resp.StatusCode, body)
	}

	var pr pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return fmt.Errorf("polling: decode: %w", err)
	}
	if pr.Cursor != "" {
		s.cursor = pr.Cursor
	}
	s.pending = append(s.pending, pr.Events...)
	return nil
}
