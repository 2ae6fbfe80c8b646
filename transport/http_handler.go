// Package transport exposes the webhook pipeline over HTTP. One handler per
// endpoint mode; the processor's retry behavior is driven entirely by the
// status code the dispatcher maps for each outcome.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-attribution/core"
	"github.com/goliatone/go-attribution/webhooks"
)

const (
	DefaultSignatureHeader = "Stripe-Signature"

	defaultMaxBodyBytes int64 = 1 << 20 // processor payloads are small; 1 MiB is generous
)

// WebhookDispatcher is the pipeline entry point the handler delegates to.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, delivery webhooks.Delivery) (webhooks.Result, error)
}

type WebhookHandler struct {
	mode            core.Mode
	dispatcher      WebhookDispatcher
	signatureHeader string
	maxBodyBytes    int64
	observer        *core.Observer
	now             func() time.Time
}

type WebhookHandlerOption func(*WebhookHandler)

func WithSignatureHeader(name string) WebhookHandlerOption {
	return func(h *WebhookHandler) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			h.signatureHeader = trimmed
		}
	}
}

func WithMaxBodyBytes(limit int64) WebhookHandlerOption {
	return func(h *WebhookHandler) {
		if limit > 0 {
			h.maxBodyBytes = limit
		}
	}
}

func WithObserver(observer *core.Observer) WebhookHandlerOption {
	return func(h *WebhookHandler) {
		h.observer = observer
	}
}

func NewWebhookHandler(mode core.Mode, dispatcher WebhookDispatcher, opts ...WebhookHandlerOption) (*WebhookHandler, error) {
	parsed, err := core.ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("transport: webhook dispatcher is required")
	}
	h := &WebhookHandler{
		mode:            parsed,
		dispatcher:      dispatcher,
		signatureHeader: DefaultSignatureHeader,
		maxBodyBytes:    defaultMaxBodyBytes,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.dispatcher == nil {
		writePlain(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writePlain(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	startedAt := h.now()
	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodyBytes+1))
	if err != nil {
		h.observe(r, startedAt, err)
		writePlain(w, http.StatusBadRequest, "Malformed payload")
		return
	}
	if int64(len(body)) > h.maxBodyBytes {
		h.observe(r, startedAt, fmt.Errorf("transport: request body exceeds %d bytes", h.maxBodyBytes))
		writePlain(w, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), webhooks.Delivery{
		Body:            body,
		SignatureHeader: r.Header.Get(h.signatureHeader),
		Mode:            h.mode,
	})
	h.observe(r, startedAt, err)
	writePlain(w, result.StatusCode, result.Message)
}

func (h *WebhookHandler) observe(r *http.Request, startedAt time.Time, err error) {
	if h == nil || h.observer == nil {
		return
	}
	h.observer.ObserveOperation(r.Context(), startedAt, "webhook_http", err, map[string]any{
		"mode":   string(h.mode),
		"path":   r.URL.Path,
		"remote": r.RemoteAddr,
	})
}

// NewRouter mounts one webhook handler per mode under basePath, e.g.
// /webhooks/live, /webhooks/test, /webhooks/sandbox.
func NewRouter(dispatcher WebhookDispatcher, basePath string, opts ...WebhookHandlerOption) (*http.ServeMux, error) {
	basePath = strings.TrimRight(strings.TrimSpace(basePath), "/")
	if basePath == "" {
		basePath = "/webhooks"
	}
	mux := http.NewServeMux()
	for _, mode := range []core.Mode{core.ModeLive, core.ModeTest, core.ModeSandbox} {
		handler, err := NewWebhookHandler(mode, dispatcher, opts...)
		if err != nil {
			return nil, err
		}
		mux.Handle(basePath+"/"+string(mode), handler)
	}
	return mux, nil
}

func writePlain(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if status <= 0 {
		status = http.StatusInternalServerError
	}
	w.WriteHeader(status)
	if message != "" {
		io.WriteString(w, message)
	}
}

var _ http.Handler = (*WebhookHandler)(nil)
