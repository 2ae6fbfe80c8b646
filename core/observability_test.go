package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordedMetric struct {
	name string
	tags map[string]string
}

type capturingMetrics struct {
	counters   []recordedMetric
	histograms []recordedMetric
}

func (m *capturingMetrics) IncCounter(_ context.Context, name string, _ int64, tags map[string]string) {
	m.counters = append(m.counters, recordedMetric{name: name, tags: tags})
}

func (m *capturingMetrics) ObserveHistogram(_ context.Context, name string, _ float64, tags map[string]string) {
	m.histograms = append(m.histograms, recordedMetric{name: name, tags: tags})
}

type capturingObsLogger struct {
	infos  []string
	errors []string
}

func (l *capturingObsLogger) Trace(string, ...any) {}
func (l *capturingObsLogger) Debug(string, ...any) {}
func (l *capturingObsLogger) Warn(string, ...any)  {}
func (l *capturingObsLogger) Fatal(string, ...any) {}

func (l *capturingObsLogger) Info(msg string, _ ...any) {
	l.infos = append(l.infos, msg)
}

func (l *capturingObsLogger) Error(msg string, _ ...any) {
	l.errors = append(l.errors, msg)
}

func (l *capturingObsLogger) WithContext(context.Context) Logger {
	return l
}

func TestObserver_NilReceiverSafe(t *testing.T) {
	var observer *Observer
	observer.ObserveOperation(context.Background(), time.Now(), "noop", nil, nil)
	observer.Info(context.Background(), "noop", nil)
	observer.Counter(context.Background(), "noop", 1, nil)
	observer.Histogram(context.Background(), "noop", 1, nil)
}

func TestObserveOperation_StatusAndTags(t *testing.T) {
	metrics := &capturingMetrics{}
	logger := &capturingObsLogger{}
	observer := NewObserver(logger, metrics, "attribution")
	startedAt := time.Now().Add(-10 * time.Millisecond)

	observer.ObserveOperation(context.Background(), startedAt, "Record_Sale", nil, map[string]any{
		"invoice_id":   "in_123",
		"workspace_id": "ws_1",
	})
	if len(metrics.counters) != 1 || metrics.counters[0].name != "attribution.record_sale.total" {
		t.Fatalf("expected normalized counter name, got %+v", metrics.counters)
	}
	if metrics.counters[0].tags["status"] != "success" {
		t.Fatalf("expected success status tag, got %q", metrics.counters[0].tags["status"])
	}
	if metrics.counters[0].tags["invoice_id"] != "in_123" {
		t.Fatalf("expected invoice id tag, got %+v", metrics.counters[0].tags)
	}
	if len(metrics.histograms) != 1 || metrics.histograms[0].name != "attribution.record_sale.duration_ms" {
		t.Fatalf("expected duration histogram, got %+v", metrics.histograms)
	}
	if len(logger.infos) != 1 || logger.infos[0] != "record_sale succeeded" {
		t.Fatalf("expected success log line, got %+v", logger.infos)
	}

	observer.ObserveOperation(context.Background(), startedAt, "record_sale", errors.New("boom"), nil)
	if metrics.counters[1].tags["status"] != "failure" {
		t.Fatalf("expected failure status tag, got %q", metrics.counters[1].tags["status"])
	}
	if len(logger.errors) != 1 || logger.errors[0] != "record_sale failed" {
		t.Fatalf("expected failure log line, got %+v", logger.errors)
	}

	observer.ObserveOperation(context.Background(), startedAt, "webhook", Skipf("Unsupported event type %q, skipping...", "x"), nil)
	if metrics.counters[2].tags["status"] != "skipped" {
		t.Fatalf("expected skipped status tag, got %q", metrics.counters[2].tags["status"])
	}
	if len(logger.infos) != 2 || logger.infos[1] != "webhook skipped" {
		t.Fatalf("expected skip log line, got %+v", logger.infos)
	}
}

func TestNewObserver_DefaultPrefix(t *testing.T) {
	metrics := &capturingMetrics{}
	observer := NewObserver(nil, metrics, "  ")
	observer.ObserveOperation(context.Background(), time.Now(), "op", nil, nil)
	if len(metrics.counters) != 1 || metrics.counters[0].name != "attribution.op.total" {
		t.Fatalf("expected default prefix, got %+v", metrics.counters)
	}
}
