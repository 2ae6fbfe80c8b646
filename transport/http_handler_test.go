package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-attribution/core"
	"github.com/goliatone/go-attribution/webhooks"
)

type stubDispatcher struct {
	dispatchFn func(ctx context.Context, delivery webhooks.Delivery) (webhooks.Result, error)
	deliveries []webhooks.Delivery
}

func (d *stubDispatcher) Dispatch(ctx context.Context, delivery webhooks.Delivery) (webhooks.Result, error) {
	d.deliveries = append(d.deliveries, delivery)
	if d.dispatchFn == nil {
		return webhooks.Result{StatusCode: http.StatusOK, Message: "ok"}, nil
	}
	return d.dispatchFn(ctx, delivery)
}

func TestWebhookHandler_ForwardsBodySignatureAndMode(t *testing.T) {
	dispatcher := &stubDispatcher{
		dispatchFn: func(_ context.Context, delivery webhooks.Delivery) (webhooks.Result, error) {
			return webhooks.Result{
				StatusCode: http.StatusOK,
				Message:    "Sale recorded for customer ID cus_1 and invoice ID in_123",
			}, nil
		},
	}
	handler, err := NewWebhookHandler(core.ModeLive, dispatcher)
	if err != nil {
		t.Fatalf("new webhook handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/live", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set(DefaultSignatureHeader, "t=1,v1=abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "Sale recorded for customer ID cus_1 and invoice ID in_123" {
		t.Fatalf("unexpected response body: %q", got)
	}
	if len(dispatcher.deliveries) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(dispatcher.deliveries))
	}
	delivery := dispatcher.deliveries[0]
	if string(delivery.Body) != `{"id":"evt_1"}` {
		t.Fatalf("unexpected delivery body: %q", delivery.Body)
	}
	if delivery.SignatureHeader != "t=1,v1=abc" {
		t.Fatalf("unexpected signature header: %q", delivery.SignatureHeader)
	}
	if delivery.Mode != core.ModeLive {
		t.Fatalf("unexpected delivery mode: %q", delivery.Mode)
	}
}

func TestWebhookHandler_WritesDispatcherStatusOnError(t *testing.T) {
	dispatcher := &stubDispatcher{
		dispatchFn: func(context.Context, webhooks.Delivery) (webhooks.Result, error) {
			return webhooks.Result{StatusCode: http.StatusBadRequest, Message: "Invalid signature"},
				core.MapError(core.ErrInvalidMode)
		},
	}
	handler, err := NewWebhookHandler(core.ModeTest, dispatcher)
	if err != nil {
		t.Fatalf("new webhook handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/test", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "Invalid signature" {
		t.Fatalf("unexpected response body: %q", got)
	}
}

func TestWebhookHandler_RejectsNonPost(t *testing.T) {
	handler, err := NewWebhookHandler(core.ModeLive, &stubDispatcher{})
	if err != nil {
		t.Fatalf("new webhook handler: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/webhooks/live", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if rec.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("expected Allow header, got %q", rec.Header().Get("Allow"))
	}
}

func TestWebhookHandler_RejectsOversizedBody(t *testing.T) {
	dispatcher := &stubDispatcher{}
	handler, err := NewWebhookHandler(core.ModeLive, dispatcher, WithMaxBodyBytes(8))
	if err != nil {
		t.Fatalf("new webhook handler: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/live", strings.NewReader(strings.Repeat("x", 64)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if len(dispatcher.deliveries) != 0 {
		t.Fatalf("expected no dispatch for oversized payload")
	}
}

func TestWebhookHandler_CustomSignatureHeader(t *testing.T) {
	dispatcher := &stubDispatcher{}
	handler, err := NewWebhookHandler(core.ModeSandbox, dispatcher, WithSignatureHeader("X-Custom-Signature"))
	if err != nil {
		t.Fatalf("new webhook handler: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/sandbox", strings.NewReader("{}"))
	req.Header.Set("X-Custom-Signature", "t=2,v1=def")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if dispatcher.deliveries[0].SignatureHeader != "t=2,v1=def" {
		t.Fatalf("unexpected signature header: %q", dispatcher.deliveries[0].SignatureHeader)
	}
}

func TestNewWebhookHandler_RejectsInvalidMode(t *testing.T) {
	if _, err := NewWebhookHandler(core.Mode("production"), &stubDispatcher{}); err == nil {
		t.Fatalf("expected invalid mode error")
	}
	if _, err := NewWebhookHandler(core.ModeLive, nil); err == nil {
		t.Fatalf("expected dispatcher requirement error")
	}
}

func TestNewRouter_MountsAllModes(t *testing.T) {
	dispatcher := &stubDispatcher{}
	mux, err := NewRouter(dispatcher, "/hooks")
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	for _, mode := range []core.Mode{core.ModeLive, core.ModeTest, core.ModeSandbox} {
		req := httptest.NewRequest(http.MethodPost, "/hooks/"+string(mode), strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for mode %s, got %d", mode, rec.Code)
		}
	}
	if len(dispatcher.deliveries) != 3 {
		t.Fatalf("expected three dispatches, got %d", len(dispatcher.deliveries))
	}
	if dispatcher.deliveries[2].Mode != core.ModeSandbox {
		t.Fatalf("unexpected third mode: %q", dispatcher.deliveries[2].Mode)
	}
}
