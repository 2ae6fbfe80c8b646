package command

import (
	"context"
	"fmt"

	"github.com/goliatone/go-attribution/core"
)

// DispatchingWorkflowEmitter forwards workflow events onto the host's
// command bus; the host registers the handler that actually triggers the
// workflow engine.
type DispatchingWorkflowEmitter struct {
	dispatcher core.CommandDispatcher
}

func NewDispatchingWorkflowEmitter(dispatcher core.CommandDispatcher) (*DispatchingWorkflowEmitter, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("command: dispatcher is required")
	}
	return &DispatchingWorkflowEmitter{dispatcher: dispatcher}, nil
}

func (e *DispatchingWorkflowEmitter) Emit(ctx context.Context, event core.WorkflowEvent) error {
	if e == nil || e.dispatcher == nil {
		return commandDependencyError("command: workflow emitter is not configured")
	}
	msg := EmitWorkflowMessage{Event: event}
	if err := msg.Validate(); err != nil {
		return commandInvalidInputError(err.Error())
	}
	return e.dispatcher.Dispatch(ctx, msg)
}

// DispatchingStatsResyncer forwards partner stats recomputation requests
// onto the host's command bus.
type DispatchingStatsResyncer struct {
	dispatcher core.CommandDispatcher
}

func NewDispatchingStatsResyncer(dispatcher core.CommandDispatcher) (*DispatchingStatsResyncer, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("command: dispatcher is required")
	}
	return &DispatchingStatsResyncer{dispatcher: dispatcher}, nil
}

func (r *DispatchingStatsResyncer) Resync(ctx context.Context, programID string, partnerID string, linkID string) error {
	if r == nil || r.dispatcher == nil {
		return commandDependencyError("command: stats resyncer is not configured")
	}
	msg := ResyncStatsMessage{
		ProgramID: programID,
		PartnerID: partnerID,
		LinkID:    linkID,
	}
	if err := msg.Validate(); err != nil {
		return commandInvalidInputError(err.Error())
	}
	return r.dispatcher.Dispatch(ctx, msg)
}

var (
	_ core.WorkflowEmitter      = (*DispatchingWorkflowEmitter)(nil)
	_ core.PartnerStatsResyncer = (*DispatchingStatsResyncer)(nil)
)
