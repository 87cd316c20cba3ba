package middleware

import (
	"net/http"

	"gitlab.com/gitlab-org/httpwatch/internal/events"
	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
)

// EventDispatch emits the pre and post transaction events of a client, both under the global name
// and under the client scoped name.
type EventDispatch struct {
	dispatcher events.Dispatcher
	client     string
}

// NewEventDispatch creates the event stage for the named client.
func NewEventDispatch(dispatcher events.Dispatcher, client string) *EventDispatch {
	return &EventDispatch{dispatcher: dispatcher, client: client}
}

// Wrap implements pipeline.Middleware.
func (e *EventDispatch) Wrap(next pipeline.Handler) pipeline.Handler {
	return pipeline.HandlerFunc(func(req *http.Request, opts pipeline.Options) (*http.Response, error) {
		ctx := req.Context()

		pre := &events.TransactionEvent{Client: e.client, Request: req}
		e.dispatcher.Dispatch(ctx, pre, events.PreTransaction)
		e.dispatcher.Dispatch(ctx, pre, events.PreTransactionFor(e.client))

		if pre.Request != nil {
			req = pre.Request
		}

		response, err := next.Handle(req, opts)

		post := &events.TransactionEvent{Client: e.client, Request: req, Response: response, Err: err}
		if err != nil {
			post.Response = pipeline.ResponseFromError(err)
		}
		e.dispatcher.Dispatch(ctx, post, events.PostTransaction)
		e.dispatcher.Dispatch(ctx, post, events.PostTransactionFor(e.client))

		if err != nil {
			return response, err
		}

		return post.Response, nil
	})
}
