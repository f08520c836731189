// Package carrier models the carrier-extension API: asynchronous supplementary
// service requests and the per-SIM carrier configuration that gates them.
package carrier

import (
	"fmt"

	"github.com/sebas/incallcore/internal/incall/call"
)

// ResultSuccess is the response code for an accepted request.
const ResultSuccess = 0

// RequestKind identifies a carrier request.
type RequestKind int

const (
	RequestDeflect RequestKind = iota
	RequestTransfer
	RequestCancelModify
)

func (k RequestKind) String() string {
	switch k {
	case RequestDeflect:
		return "deflect"
	case RequestTransfer:
		return "transfer"
	case RequestCancelModify:
		return "cancel_modify"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// ParseRequestKind converts a name back to a RequestKind.
func ParseRequestKind(s string) (RequestKind, error) {
	for k := RequestDeflect; k <= RequestCancelModify; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: request kind %q", call.ErrUnknownValue, s)
}

// ResponseFunc receives the carrier's result code. It may be invoked on any goroutine.
type ResponseFunc func(result int)

// Extension sends supplementary-service requests to the carrier stack.
// A returned error means the request was not sent and cb will not be called.
type Extension interface {
	SendCallDeflectRequest(phoneID int, number string, cb ResponseFunc) error
	SendCallTransferRequest(phoneID int, transfer call.TransferType, number string, cb ResponseFunc) error
	SendCancelModifyCall(phoneID int, cb ResponseFunc) error
}
