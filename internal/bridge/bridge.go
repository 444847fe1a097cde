// Package bridge exposes the batched query executor to the surrounding
// process boundary. A request carries an id and an ordered query list; the
// response is delivered asynchronously, keyed by that id, with the named
// results aggregated into one object.
package bridge

import (
	"context"
	"sync"

	applog "envelope/internal/log"
	"envelope/internal/storage"
)

// QueryDescriptor is one entry of a request's query list. Unnamed queries
// execute for effect only.
type QueryDescriptor struct {
	Name      string `json:"name,omitempty"`
	Query     string `json:"query"`
	Arguments []any  `json:"arguments"`
}

// Request is a batch of queries executed in one transaction.
type Request struct {
	RequestID string            `json:"requestId"`
	QueryList []QueryDescriptor `json:"queryList"`
}

// Response carries the outcome of a request. Results maps each named query
// to its rows; Err is set when any query failed and the batch rolled back.
type Response struct {
	RequestID string
	Results   storage.ResultSet
	Err       error
}

// Dispatcher runs requests against a store and delivers responses through a
// caller-provided callback.
type Dispatcher struct {
	store  *storage.Store
	logger *applog.Logger
	wg     sync.WaitGroup
}

// NewDispatcher returns a Dispatcher over the given store.
func NewDispatcher(store *storage.Store, logger *applog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		logger: logger.WithComponent(applog.ComponentBridge),
	}
}

// Dispatch executes the request asynchronously and delivers the response to
// deliver. Responses for distinct requests may arrive in any order.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, deliver func(Response)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		deliver(d.Execute(ctx, req))
	}()
}

// Execute runs the request synchronously.
func (d *Dispatcher) Execute(ctx context.Context, req Request) Response {
	queries := make([]storage.Query, len(req.QueryList))
	for i, q := range req.QueryList {
		queries[i] = storage.Query{Name: q.Name, SQL: q.Query, Args: q.Arguments}
	}

	results, err := d.store.ExecuteBatch(ctx, queries)
	if err != nil {
		d.logger.ErrorContext(ctx, "Request failed",
			applog.FieldRequestID, req.RequestID,
			applog.FieldQueries, len(queries),
			applog.FieldError, err.Error())
		return Response{RequestID: req.RequestID, Err: err}
	}

	return Response{RequestID: req.RequestID, Results: results}
}

// Wait blocks until all dispatched requests have delivered their responses.
func (d *Dispatcher) Wait() { d.wg.Wait() }
