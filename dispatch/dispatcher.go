// Package dispatch serves inbound HTTP requests through a fixed-size worker
// pool. Each request gets a correlation id that travels with the response
// whether the handler succeeds or fails.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"busnode/monitor"
	"busnode/workerconfig"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultWorkers      = 10
	DefaultPollInterval = 5 * time.Second
)

type Config struct {
	Addr         string
	Workers      int
	PollInterval time.Duration
	Metrics      *monitor.Metrics
}

type Dispatcher struct {
	addr    string
	workers int
	poll    time.Duration
	handler Handler
	config  *workerconfig.Holder
	metrics *monitor.Metrics
	logger  hclog.Logger

	router chi.Router
	pool   *pool
	srv    *http.Server

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
}

func New(c Config, h Handler, holder *workerconfig.Holder, logger hclog.Logger) *Dispatcher {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	d := &Dispatcher{
		addr:    c.Addr,
		workers: c.Workers,
		poll:    c.PollInterval,
		handler: h,
		config:  holder,
		metrics: c.Metrics,
		logger:  logger.Named("dispatch"),
	}

	r := chi.NewRouter()
	if c.Metrics != nil {
		r.Handle("/metrics", c.Metrics.Handler())
	}
	r.Handle("/*", http.HandlerFunc(d.serveChannel))
	d.router = r

	d.pool = newPool(d.workers, d.serveRequest)
	d.srv = &http.Server{
		Handler:           http.HandlerFunc(d.enqueue),
		ReadHeaderTimeout: 30 * time.Second,
	}
	return d
}

func (d *Dispatcher) Workers() int { return d.workers }

// Addr is the address the dispatcher is listening on, empty before it has
// started.
func (d *Dispatcher) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// RunForever listens on the configured address and serves until ctx is
// cancelled.
func (d *Dispatcher) RunForever(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.addr)
	if err != nil {
		return fmt.Errorf("dispatch: listen %s: %w", d.addr, err)
	}
	return d.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled. The accept loop wakes every
// poll interval to check ctx.
func (d *Dispatcher) Serve(ctx context.Context, ln net.Listener) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		ln.Close()
		return http.ErrServerClosed
	}
	d.listener = ln
	d.mu.Unlock()

	d.logger.Info("dispatcher listening", "addr", ln.Addr().String(), "workers", d.workers)
	err := d.srv.Serve(&pollingListener{Listener: ln, ctx: ctx, poll: d.poll})
	if ctx.Err() != nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the HTTP server down, waiting for in-flight requests, then
// stops the worker pool. Safe to call more than once.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()

	err := d.srv.Shutdown(ctx)
	d.pool.stop()
	return err
}

func (d *Dispatcher) enqueue(w http.ResponseWriter, r *http.Request) {
	d.metrics.Queued(1)
	ok := d.pool.submit(w, r)
	d.metrics.Queued(-1)
	if !ok {
		buf := newBufferedWriter()
		http.Error(buf, "service unavailable", http.StatusServiceUnavailable)
		buf.flushTo(w, uuid.NewString())
	}
}

// serveRequest runs on a pool worker. The response is buffered so the
// correlation id and content length can be set on every response.
func (d *Dispatcher) serveRequest(w http.ResponseWriter, r *http.Request) {
	d.metrics.WorkerBusy(1)
	defer d.metrics.WorkerBusy(-1)

	start := time.Now()
	cid := uuid.NewString()
	buf := newBufferedWriter()

	func() {
		defer func() {
			if p := recover(); p != nil {
				d.fail(buf, cid, fmt.Sprintf("%v\n%s", p, debug.Stack()))
			}
		}()
		d.router.ServeHTTP(buf, r.WithContext(withCorrelationID(r.Context(), cid)))
	}()

	buf.flushTo(w, cid)
	d.metrics.ObserveRequest(strconv.Itoa(buf.status), time.Since(start))
}

func (d *Dispatcher) serveChannel(w http.ResponseWriter, r *http.Request) {
	cid := CorrelationID(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		d.fail(w, cid, fmt.Sprintf("read request body: %v", err))
		return
	}

	snap := d.config.Load()
	if snap == nil {
		d.fail(w, cid, "worker config not loaded")
		return
	}
	req := &Request{
		CorrelationID: cid,
		HTTP:          r,
		Body:          body,
		Snapshot:      snap,
	}
	if route, ok := snap.Route(r.URL.Path, soapAction(r)); ok {
		req.Route = &route
	}

	resp, err := d.handler.Handle(r.Context(), req)
	if err != nil {
		d.fail(w, cid, err.Error())
		return
	}
	writeResponse(w, resp)
}

// fail renders the 500 every handler failure turns into.
func (d *Dispatcher) fail(w http.ResponseWriter, cid, trace string) {
	d.logger.Error("request failed", "cid", cid, "error", trace)
	if bw, ok := w.(*bufferedWriter); ok {
		bw.reset()
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "[%s] Exception caught [%s]", cid, trace)
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	if resp == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write(resp.Body)
}

func soapAction(r *http.Request) string {
	a := r.Header.Get("SOAPAction")
	if len(a) >= 2 && a[0] == '"' && a[len(a)-1] == '"' {
		a = a[1 : len(a)-1]
	}
	return a
}

// bufferedWriter holds the whole response until the handler returns.
type bufferedWriter struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.wroteHeader = true
	b.status = code
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}

// reset drops anything a failed handler already wrote.
func (b *bufferedWriter) reset() {
	b.header = make(http.Header)
	b.status = http.StatusOK
	b.wroteHeader = false
	b.body.Reset()
}

func (b *bufferedWriter) flushTo(w http.ResponseWriter, cid string) {
	h := w.Header()
	for k, vs := range b.header {
		h[k] = vs
	}
	h.Set(HeaderCorrelationID, cid)
	h.Set("Content-Length", strconv.Itoa(b.body.Len()))
	w.WriteHeader(b.status)
	w.Write(b.body.Bytes())
}
