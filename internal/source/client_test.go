package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tinytelemetry/dealboard/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{BaseURL: srv.URL + "/", Token: "secret"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClientSlideshow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/slideshows/tv-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "tv-1",
			"name": "Sales floor",
			"duration": 30,
			"isActive": true,
			"slides": [
				{"type": "leaderboard", "leaderboardId": "lb-1", "duration": 20},
				{"type": "trend", "leaderboardId": "lb-1"},
				{"type": "quotes"}
			]
		}`))
	})

	ss, err := c.Slideshow(context.Background(), "tv-1")
	if err != nil {
		t.Fatalf("Slideshow: %v", err)
	}
	if ss.Name != "Sales floor" || !ss.Active {
		t.Errorf("slideshow = %+v", ss)
	}
	if len(ss.Slides) != 3 {
		t.Fatalf("slides = %d, want 3", len(ss.Slides))
	}
	if ss.Slides[0].Duration != 20*time.Second {
		t.Errorf("slide 0 duration = %v, want 20s", ss.Slides[0].Duration)
	}
	if ss.DurationOf(1) != 30*time.Second {
		t.Errorf("slide 1 duration = %v, want fallback 30s", ss.DurationOf(1))
	}
	if ss.Slides[2].Key() != "quotes" {
		t.Errorf("slide 2 key = %q", ss.Slides[2].Key())
	}
}

func TestClientLeaderboardStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"leaderboard": {"id": "lb-1", "name": "Today", "visualizationMode": "cards"},
			"stats": [
				{"rank": 1, "agent": {"id": "a1", "name": "Alex"}, "totalCommission": 1250.50, "dealCount": 4, "smsCount": 10},
				{"agent": {"id": "a2", "name": "Sam"}, "totalCommission": "300", "dealCount": 1}
			]
		}`))
	})

	stats, err := c.LeaderboardStats(context.Background(), "lb-1")
	if err != nil {
		t.Fatalf("LeaderboardStats: %v", err)
	}
	if stats.Leaderboard.Visualization != model.VisualizationCards {
		t.Errorf("visualization = %q", stats.Leaderboard.Visualization)
	}
	if len(stats.Entries) != 2 {
		t.Fatalf("entries = %d", len(stats.Entries))
	}
	if got := stats.Entries[0].Commission.StringFixed(2); got != "1250.50" {
		t.Errorf("commission = %s", got)
	}
	if stats.Entries[1].Rank != 2 {
		t.Errorf("missing rank should default to position, got %d", stats.Entries[1].Rank)
	}
}

func TestClientRateLimitedMatchesSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := c.LeaderboardStats(context.Background(), "lb-1")
	if !errors.Is(err, model.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || !se.Transient() {
		t.Errorf("expected transient StatusError, got %v", err)
	}
}

func TestClientServerErrorIsNotRateLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Quotes(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, model.ErrRateLimited) {
		t.Errorf("502 must not match ErrRateLimited")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
