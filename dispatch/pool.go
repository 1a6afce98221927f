package dispatch

import (
	"net/http"
	"sync"
)

type task struct {
	w    http.ResponseWriter
	r    *http.Request
	done chan struct{}
}

// pool runs requests on a fixed set of worker goroutines. The HTTP server's
// connection goroutines only queue work and wait for it.
type pool struct {
	tasks chan task
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

func newPool(size int, serve func(http.ResponseWriter, *http.Request)) *pool {
	p := &pool{
		tasks: make(chan task),
		quit:  make(chan struct{}),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.quit:
					return
				case t := <-p.tasks:
					serve(t.w, t.r)
					close(t.done)
				}
			}
		}()
	}
	return p
}

// submit hands a request to a worker and waits for it to finish. It returns
// false if the pool is stopped or the client went away before a worker
// picked the request up.
func (p *pool) submit(w http.ResponseWriter, r *http.Request) bool {
	t := task{w: w, r: r, done: make(chan struct{})}
	select {
	case p.tasks <- t:
	case <-p.quit:
		return false
	case <-r.Context().Done():
		return false
	}
	<-t.done
	return true
}

func (p *pool) stop() {
	p.once.Do(func() {
		close(p.quit)
		p.wg.Wait()
	})
}
