package command

import (
	"context"
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-attribution/core"
)

// BusDispatcher routes the module's messages through the go-command global
// dispatcher. Hosts that subscribed the commands in this package (or their
// own handlers) receive them with full middleware support.
type BusDispatcher struct{}

func NewBusDispatcher() *BusDispatcher { return &BusDispatcher{} }

func (BusDispatcher) Dispatch(ctx context.Context, msg any) error {
	switch typed := msg.(type) {
	case RecordSaleMessage:
		return commanddispatcher.Dispatch(ctx, typed)
	case RecordLeadMessage:
		return commanddispatcher.Dispatch(ctx, typed)
	case RefundCommissionMessage:
		return commanddispatcher.Dispatch(ctx, typed)
	case EmitWorkflowMessage:
		return commanddispatcher.Dispatch(ctx, typed)
	case ResyncStatsMessage:
		return commanddispatcher.Dispatch(ctx, typed)
	case DrainOutboxMessage:
		return commanddispatcher.Dispatch(ctx, typed)
	default:
		return commandInvalidInputError(fmt.Sprintf("command: unsupported message %T", msg))
	}
}

var _ core.CommandDispatcher = (*BusDispatcher)(nil)
