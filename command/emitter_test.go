package command

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-attribution/core"
)

type capturingDispatcher struct {
	messages []any
	err      error
}

func (d *capturingDispatcher) Dispatch(_ context.Context, msg any) error {
	d.messages = append(d.messages, msg)
	return d.err
}

func TestDispatchingWorkflowEmitter_DispatchesValidatedEvent(t *testing.T) {
	dispatcher := &capturingDispatcher{}
	emitter, err := NewDispatchingWorkflowEmitter(dispatcher)
	if err != nil {
		t.Fatalf("new workflow emitter: %v", err)
	}

	event := core.WorkflowEvent{
		Name:        "partner.metrics.recompute",
		WorkspaceID: "ws_1",
		ProgramID:   "prog_1",
		OccurredAt:  time.Now(),
	}
	if err := emitter.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit workflow event: %v", err)
	}
	if len(dispatcher.messages) != 1 {
		t.Fatalf("expected one dispatched message, got %d", len(dispatcher.messages))
	}
	msg, ok := dispatcher.messages[0].(EmitWorkflowMessage)
	if !ok {
		t.Fatalf("unexpected message type %T", dispatcher.messages[0])
	}
	if msg.Event.Name != event.Name || msg.Event.ProgramID != event.ProgramID {
		t.Fatalf("unexpected event payload: %#v", msg.Event)
	}
}

func TestDispatchingWorkflowEmitter_RejectsUnnamedEvent(t *testing.T) {
	dispatcher := &capturingDispatcher{}
	emitter, err := NewDispatchingWorkflowEmitter(dispatcher)
	if err != nil {
		t.Fatalf("new workflow emitter: %v", err)
	}
	if err := emitter.Emit(context.Background(), core.WorkflowEvent{}); err == nil {
		t.Fatalf("expected validation error for unnamed event")
	}
	if len(dispatcher.messages) != 0 {
		t.Fatalf("expected no dispatch for invalid event")
	}
}

func TestDispatchingStatsResyncer_DispatchesMessage(t *testing.T) {
	dispatcher := &capturingDispatcher{}
	resyncer, err := NewDispatchingStatsResyncer(dispatcher)
	if err != nil {
		t.Fatalf("new stats resyncer: %v", err)
	}
	if err := resyncer.Resync(context.Background(), "prog_1", "pn_1", "link_1"); err != nil {
		t.Fatalf("resync stats: %v", err)
	}
	msg, ok := dispatcher.messages[0].(ResyncStatsMessage)
	if !ok {
		t.Fatalf("unexpected message type %T", dispatcher.messages[0])
	}
	if msg.ProgramID != "prog_1" || msg.PartnerID != "pn_1" || msg.LinkID != "link_1" {
		t.Fatalf("unexpected resync payload: %#v", msg)
	}
}

func TestDispatchingConstructors_RequireDispatcher(t *testing.T) {
	if _, err := NewDispatchingWorkflowEmitter(nil); err == nil {
		t.Fatalf("expected dispatcher requirement for emitter")
	}
	if _, err := NewDispatchingStatsResyncer(nil); err == nil {
		t.Fatalf("expected dispatcher requirement for resyncer")
	}
}
