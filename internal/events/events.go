// Package events defines the transaction events emitted around every outgoing request and a small
// in-process dispatcher for them.
package events

import (
	"context"
	"fmt"
	"net/http"
)

const (
	// PreTransaction is dispatched before a request is sent.
	PreTransaction = "httpwatch.pre_transaction"
	// PostTransaction is dispatched once a request completed or failed.
	PostTransaction = "httpwatch.post_transaction"
)

// PreTransactionFor returns the pre transaction event name scoped to one client.
func PreTransactionFor(client string) string {
	return fmt.Sprintf("%s.%s", PreTransaction, client)
}

// PostTransactionFor returns the post transaction event name scoped to one client.
func PostTransactionFor(client string) string {
	return fmt.Sprintf("%s.%s", PostTransaction, client)
}

// TransactionEvent carries the request or the response of a transaction. Listeners of the pre
// transaction event may replace Request; listeners of the post transaction event may replace Response.
// Response is nil when the request failed without a response.
type TransactionEvent struct {
	Client   string
	Request  *http.Request
	Response *http.Response
	Err      error
}

// Dispatcher delivers events to listeners.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *TransactionEvent, name string)
}

// Listener handles a dispatched event.
type Listener func(ctx context.Context, event *TransactionEvent)
