package dispatch

import (
	"context"
	"errors"
	"net"
	"time"
)

type deadliner interface {
	SetDeadline(t time.Time) error
}

// pollingListener wakes from Accept every poll interval to check whether ctx
// has ended, so the accept loop stops on interrupt without closing the
// socket out from under it.
type pollingListener struct {
	net.Listener
	ctx  context.Context
	poll time.Duration
}

func (l *pollingListener) Accept() (net.Conn, error) {
	d, canPoll := l.Listener.(deadliner)
	for {
		if err := l.ctx.Err(); err != nil {
			return nil, net.ErrClosed
		}
		if canPoll {
			d.SetDeadline(time.Now().Add(l.poll))
		}
		conn, err := l.Listener.Accept()
		if err == nil {
			return conn, nil
		}
		var ne net.Error
		if canPoll && errors.As(err, &ne) && ne.Timeout() {
			continue
		}
		return nil, err
	}
}
