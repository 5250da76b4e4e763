package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/display"
	"github.com/tinytelemetry/dealboard/internal/gateway"
	"github.com/tinytelemetry/dealboard/internal/model"
	"github.com/tinytelemetry/dealboard/internal/rotation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDisplay struct {
	view       display.View
	refreshErr error
	refreshes  int
	nexts      int
}

func (f *fakeDisplay) Snapshot() display.View { return f.view }

func (f *fakeDisplay) RefreshNow() error {
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.refreshes++
	return nil
}

func (f *fakeDisplay) Next() {
	f.nexts++
	f.view.Rotation.Index = (f.view.Rotation.Index + 1) % f.view.Rotation.Count
}

func newTestServer(t *testing.T, token string) (*fakeDisplay, *gateway.Gateway, http.Handler) {
	t.Helper()
	d := &fakeDisplay{view: display.View{
		Phase:       "mounted",
		SlideshowID: "show-1",
		State:       "playing",
		Rotation:    rotation.Snapshot{Index: 0, Count: 3},
	}}
	gw := gateway.New(clockwork.NewFakeClock(), gateway.DefaultConfig())
	srv := NewServer("", token, d, gw)
	return d, gw, srv.Handler()
}

func do(h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		r.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	_, _, h := newTestServer(t, "")

	w := do(h, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if body["status"] != "ok" || body["phase"] != "mounted" {
		t.Errorf("health = %v", body)
	}
	if body["push"] != string(gateway.StateDisabled) {
		t.Errorf("push = %v, want %s", body["push"], gateway.StateDisabled)
	}
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	_, _, h := newTestServer(t, "")

	w := do(h, http.MethodPost, "/api/health", "")
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("health POST status = %d, want 405 or 404", w.Code)
	}
}

func TestDisplayEndpoint(t *testing.T) {
	_, _, h := newTestServer(t, "")

	w := do(h, http.MethodGet, "/api/display", "")
	if w.Code != http.StatusOK {
		t.Fatalf("display status = %d", w.Code)
	}
	var body struct {
		Display display.View   `json:"display"`
		Push    gateway.Status `json:"push"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal display: %v", err)
	}
	if body.Display.SlideshowID != "show-1" || body.Display.Rotation.Count != 3 {
		t.Errorf("display = %+v", body.Display)
	}
}

func TestDealsEndpoint(t *testing.T) {
	var got []model.DealNotification
	valid := `{"event":"deal","data":{"agent":{"id":"a1","name":"Alice"},"commission":120.5}}`

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid deal", valid, http.StatusAccepted},
		{"sentinel agent", `{"event":"deal","data":{"agent":{"id":"x","name":"Unknown Agent"},"commission":1}}`, http.StatusBadRequest},
		{"malformed json", `{"event":`, http.StatusBadRequest},
		{"other event", `{"event":"ping","data":{}}`, http.StatusBadRequest},
		{"oversized", `{"pad":"` + strings.Repeat("x", maxDealBody) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, gw, h := newTestServer(t, "")
			got = nil
			gw.Subscribe(func(n model.DealNotification) { got = append(got, n) })

			w := do(h, http.MethodPost, "/api/deals", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tt.want, w.Body.String())
			}
			wantDelivered := 0
			if tt.want == http.StatusAccepted {
				wantDelivered = 1
			}
			if len(got) != wantDelivered {
				t.Errorf("delivered %d deals, want %d", len(got), wantDelivered)
			}
		})
	}
}

func TestDealsEndpoint_Token(t *testing.T) {
	_, _, h := newTestServer(t, "s3cret")
	body := `{"event":"deal","data":{"agent":{"id":"a1","name":"Alice"},"commission":10}}`

	if w := do(h, http.MethodPost, "/api/deals", body); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}
	if w := do(h, http.MethodPost, "/api/deals", body, "Authorization", "Bearer nope"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", w.Code)
	}
	if w := do(h, http.MethodPost, "/api/deals", body, "Authorization", "Bearer s3cret"); w.Code != http.StatusAccepted {
		t.Errorf("good token: status = %d, want 202", w.Code)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	d, _, h := newTestServer(t, "")

	if w := do(h, http.MethodPost, "/api/refresh", ""); w.Code != http.StatusAccepted {
		t.Fatalf("refresh status = %d", w.Code)
	}
	if d.refreshes != 1 {
		t.Errorf("refreshes = %d", d.refreshes)
	}

	d.refreshErr = errors.New("display: not mounted (dormant)")
	if w := do(h, http.MethodPost, "/api/refresh", ""); w.Code != http.StatusConflict {
		t.Errorf("refresh while dormant = %d, want 409", w.Code)
	}
}

func TestNextEndpoint(t *testing.T) {
	d, _, h := newTestServer(t, "")

	w := do(h, http.MethodPost, "/api/slides/next", "")
	if w.Code != http.StatusOK {
		t.Fatalf("next status = %d", w.Code)
	}
	var body struct{ Index, Count int }
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if d.nexts != 1 || body.Index != 1 || body.Count != 3 {
		t.Errorf("next = %+v (calls %d)", body, d.nexts)
	}
}

func TestGinRecovery(t *testing.T) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("panic recovery status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
