package dispatch

import (
	"context"
	"net/http"

	"busnode/workerconfig"
)

// HeaderCorrelationID carries the per-request correlation id on every
// response.
const HeaderCorrelationID = "X-Correlation-Id"

// Request is what the business handler sees: the inbound HTTP request, its
// body, the correlation id and the route resolved from the current worker
// config snapshot.
type Request struct {
	CorrelationID string
	HTTP          *http.Request
	Body          []byte
	Snapshot      *workerconfig.Snapshot
	Route         *workerconfig.RouteInfo
}

type Response struct {
	Status      int
	ContentType string
	Header      http.Header
	Body        []byte
}

// Handler is the business logic behind the dispatcher. Returning an error
// or panicking produces a 500 carrying the correlation id.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

type ctxKey struct{}

// CorrelationID returns the id assigned to the request ctx belongs to.
func CorrelationID(ctx context.Context) string {
	cid, _ := ctx.Value(ctxKey{}).(string)
	return cid
}

func withCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, ctxKey{}, cid)
}
