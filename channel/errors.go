package channel

import (
	"fmt"

	goalert "github.com/MrEthical07/goAlert"
)

var (
	// ErrNotConfigured wraps goalert.ErrNotConfigured for missing credentials.
	ErrNotConfigured = fmt.Errorf("%w: channel credentials missing", goalert.ErrNotConfigured)
	// ErrRejected reports a gateway that answered but refused the message.
	ErrRejected = fmt.Errorf("%w: gateway rejected message", goalert.ErrTransport)
	// ErrUnreachable reports a network or timeout failure talking to the gateway.
	ErrUnreachable = fmt.Errorf("%w: gateway unreachable", goalert.ErrTransport)
)
