package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[RecordSaleMessage]       = (*RecordSaleCommand)(nil)
	_ gocmd.Commander[RecordLeadMessage]       = (*RecordLeadCommand)(nil)
	_ gocmd.Commander[RefundCommissionMessage] = (*RefundCommissionCommand)(nil)
	_ gocmd.Commander[DrainOutboxMessage]      = (*DrainOutboxCommand)(nil)
)
