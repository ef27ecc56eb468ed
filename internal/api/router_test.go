package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/plbrasil/hs-notify/internal/api"
	"github.com/plbrasil/hs-notify/internal/api/handler"
	"github.com/plbrasil/hs-notify/internal/clock"
	"github.com/plbrasil/hs-notify/internal/domain"
	"github.com/plbrasil/hs-notify/internal/metrics"
	"github.com/plbrasil/hs-notify/internal/queue"
	"github.com/plbrasil/hs-notify/internal/ratelimiter"
	"github.com/plbrasil/hs-notify/internal/repository"
	"github.com/plbrasil/hs-notify/internal/service"
)

type testApp struct {
	handler http.Handler
	q       *service.Notifications
	clock   *clock.Manual
	metrics *metrics.Metrics
}

func newTestApp(t *testing.T, limiter *ratelimiter.KeyedLimiters, db handler.Pinger) *testApp {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := clock.NewManual(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	q := queue.New(queue.Options{Clock: c}, m.QueueHooks(queue.Hooks[domain.ContratoCriado]{}))
	t.Cleanup(q.Close)

	repo := repository.NewMockContratoRepository()
	notifier := service.NewNotificationService(q, repo, zap.NewNop())
	contratos := service.NewContratoService(repo, notifier, zap.NewNop(), m.ContratoCreated)

	h := api.NewRouter(api.Deps{
		Contratos:     contratos,
		Notifications: notifier,
		CreateLimiter: limiter,
		Streams:       m,
		Heartbeat:     time.Hour,
		OutboxDepth:   func() int { return 7 },
		DB:            db,
		Gatherer:      reg,
		Logger:        zap.NewNop(),
	})
	return &testApp{handler: h, q: q, clock: c, metrics: m}
}

func (a *testApp) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, r)
	return w
}

const validBody = `{"empresa":"Metalúrgica Paulista","cnpj":"11.222.333/0001-81","plano":"completo","vidas":320}`

func TestCreateContrato_PublishesToast(t *testing.T) {
	app := newTestApp(t, nil, nil)

	w := app.do(t, http.MethodPost, "/api/v1/contratos", validBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var c domain.Contrato
	if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
		t.Fatal(err)
	}
	if c.CNPJ != "11222333000181" || c.NotifiedAt == nil {
		t.Fatalf("unexpected contrato %+v", c)
	}

	w = app.do(t, http.MethodGet, "/api/v1/notifications", "")
	var list struct {
		Data []struct {
			ID        string                `json:"id"`
			Payload   domain.ContratoCriado `json:"payload"`
			CreatedAt time.Time             `json:"created_at"`
			ExpiresAt time.Time             `json:"expires_at"`
		} `json:"data"`
		TTLMs int64 `json:"ttl_ms"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 1 || list.Data[0].Payload.ContratoID != c.ID {
		t.Fatalf("expected one toast for %s, got %+v", c.ID, list.Data)
	}
	if got := list.Data[0].ExpiresAt.Sub(list.Data[0].CreatedAt); got != queue.DefaultTTL {
		t.Fatalf("expected expires_at = created_at + %v, got %v", queue.DefaultTTL, got)
	}
	if list.TTLMs != 180000 {
		t.Fatalf("expected ttl_ms 180000, got %d", list.TTLMs)
	}
}

func TestCreateContrato_Errors(t *testing.T) {
	app := newTestApp(t, nil, nil)
	if w := app.do(t, http.MethodPost, "/api/v1/contratos", validBody); w.Code != http.StatusCreated {
		t.Fatalf("seed failed: %d", w.Code)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"invalid cnpj", `{"empresa":"X","cnpj":"11.222.333/0001-82","plano":"basico","vidas":1}`, http.StatusUnprocessableEntity},
		{"invalid plano", `{"empresa":"X","cnpj":"00000000000191","plano":"premium","vidas":1}`, http.StatusUnprocessableEntity},
		{"zero vidas", `{"empresa":"X","cnpj":"00000000000191","plano":"basico","vidas":0}`, http.StatusUnprocessableEntity},
		{"duplicate cnpj", validBody, http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := app.do(t, http.MethodPost, "/api/v1/contratos", tc.body)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
	if n := app.q.Len(); n != 1 {
		t.Fatalf("failed creations must not publish, queue has %d", n)
	}
}

func TestCreateContrato_RateLimited(t *testing.T) {
	app := newTestApp(t, ratelimiter.New(1, 1), nil)

	if w := app.do(t, http.MethodPost, "/api/v1/contratos", validBody); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	w := app.do(t, http.MethodPost, "/api/v1/contratos", validBody)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	// Reads are not throttled.
	if w := app.do(t, http.MethodGet, "/api/v1/contratos", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for list, got %d", w.Code)
	}
}

func TestGetContrato(t *testing.T) {
	app := newTestApp(t, nil, nil)

	w := app.do(t, http.MethodPost, "/api/v1/contratos", validBody)
	var c domain.Contrato
	_ = json.NewDecoder(w.Body).Decode(&c)

	if w := app.do(t, http.MethodGet, "/api/v1/contratos/"+c.ID, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := app.do(t, http.MethodGet, "/api/v1/contratos/does-not-exist", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDismissNotification_IsIdempotent(t *testing.T) {
	app := newTestApp(t, nil, nil)
	id := app.q.Enqueue(domain.ContratoCriado{ContratoID: "c-1"})

	for i := 0; i < 2; i++ {
		if w := app.do(t, http.MethodDelete, "/api/v1/notifications/"+id, ""); w.Code != http.StatusNoContent {
			t.Fatalf("call %d: expected 204, got %d", i, w.Code)
		}
	}
	if w := app.do(t, http.MethodDelete, "/api/v1/notifications/unknown", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for unknown id, got %d", w.Code)
	}
	if app.q.Len() != 0 {
		t.Fatal("expected queue to be empty")
	}
}

func TestClearNotifications(t *testing.T) {
	app := newTestApp(t, nil, nil)
	app.q.Enqueue(domain.ContratoCriado{ContratoID: "c-1"})
	app.q.Enqueue(domain.ContratoCriado{ContratoID: "c-2"})

	if w := app.do(t, http.MethodDelete, "/api/v1/notifications", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if app.q.Len() != 0 {
		t.Fatal("expected queue to be empty")
	}
}

func TestJSONMetrics(t *testing.T) {
	app := newTestApp(t, nil, nil)
	app.q.Enqueue(domain.ContratoCriado{ContratoID: "c-1"})

	w := app.do(t, http.MethodGet, "/api/v1/metrics", "")
	var body struct {
		Notifications struct {
			Active      int `json:"active"`
			Subscribers int `json:"subscribers"`
		} `json:"notifications"`
		OutboxDepth int `json:"outbox_depth"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Notifications.Active != 1 || body.Notifications.Subscribers != 0 || body.OutboxDepth != 7 {
		t.Fatalf("unexpected metrics %+v", body)
	}
}

func TestPrometheusScrape(t *testing.T) {
	app := newTestApp(t, nil, nil)
	app.q.Enqueue(domain.ContratoCriado{ContratoID: "c-1"})

	w := app.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "notifications_active 1") {
		t.Fatalf("scrape missing notifications_active:\n%s", w.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	healthy := newTestApp(t, nil, handler.PingFunc(func(context.Context) error { return nil }))
	if w := healthy.do(t, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", w.Code)
	}
	if w := healthy.do(t, http.MethodGet, "/ready", ""); w.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", w.Code)
	}

	down := newTestApp(t, nil, handler.PingFunc(func(context.Context) error { return errors.New("down") }))
	if w := down.do(t, http.MethodGet, "/ready", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: expected 503, got %d", w.Code)
	}
}

func TestCorrelationIDEchoed(t *testing.T) {
	app := newTestApp(t, nil, nil)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Correlation-ID", "req-42")
	w := httptest.NewRecorder()
	app.handler.ServeHTTP(w, r)
	if got := w.Header().Get("X-Correlation-ID"); got != "req-42" {
		t.Fatalf("expected echoed id, got %q", got)
	}

	w = app.do(t, http.MethodGet, "/health", "")
	if w.Header().Get("X-Correlation-ID") == "" {
		t.Fatal("expected a generated correlation id")
	}
}

// readEvent returns the data line of the next SSE "snapshot" event.
func readEvent(t *testing.T, r *bufio.Reader) []byte {
	t.Helper()
	var event string
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			t.Fatalf("stream read: %v", err)
		}
		line = bytes.TrimRight(line, "\n")
		switch {
		case bytes.HasPrefix(line, []byte("event: ")):
			event = string(line[len("event: "):])
		case bytes.HasPrefix(line, []byte("data: ")) && event == "snapshot":
			return line[len("data: "):]
		}
	}
}

func TestNotificationStream(t *testing.T) {
	app := newTestApp(t, nil, nil)
	existing := app.q.Enqueue(domain.ContratoCriado{ContratoID: "c-1"})

	srv := httptest.NewServer(app.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/notifications/stream", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := bufio.NewReader(resp.Body)

	type view struct {
		ID string `json:"id"`
	}
	decode := func(data []byte) []string {
		var vs []view
		if err := json.Unmarshal(data, &vs); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		ids := make([]string, len(vs))
		for i, v := range vs {
			ids[i] = v.ID
		}
		return ids
	}

	if ids := decode(readEvent(t, body)); len(ids) != 1 || ids[0] != existing {
		t.Fatalf("initial snapshot: got %v", ids)
	}

	added := app.q.Enqueue(domain.ContratoCriado{ContratoID: "c-2"})
	if ids := decode(readEvent(t, body)); len(ids) != 2 || ids[1] != added {
		t.Fatalf("after enqueue: got %v", ids)
	}

	// Both toasts share a deadline, so expiry produces one event per record.
	app.clock.Advance(queue.DefaultTTL)
	if ids := decode(readEvent(t, body)); len(ids) != 1 || ids[0] != added {
		t.Fatalf("after first expiry: got %v", ids)
	}
	if ids := decode(readEvent(t, body)); len(ids) != 0 {
		t.Fatalf("after second expiry: got %v", ids)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for app.q.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream did not unsubscribe after the client went away")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
