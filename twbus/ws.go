package twbus

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
)

// Handler returns the websocket endpoint relaying JSON messages between
// its clients and b. originPatterns are the cross origin hosts allowed to
// connect, as in websocket.AcceptOptions.
func (b *Bus) Handler(originPatterns ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			b.logger.Warn("bus websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		defer conn.CloseNow()
		origin := b.newOrigin()
		msgs, cancel := b.subscribe(64, origin)
		defer cancel()
		b.logger.Debug("bus client connected", "remote", r.RemoteAddr)
		err = b.relay(r.Context(), conn, origin, msgs)
		b.logger.Debug("bus client gone", "remote", r.RemoteAddr, "err", err)
	})
}

// relay copies messages both ways until ctx ends or the connection closes.
func (b *Bus) relay(ctx context.Context, conn *websocket.Conn, origin int, msgs <-chan Message) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	readErr := make(chan error, 1)
	go func() {
		for {
			var m Message
			if err := wsjson.Read(ctx, conn, &m); err != nil {
				readErr <- err
				return
			}
			b.publish(m, origin)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return ctx.Err()
		case err := <-readErr:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		case m, ok := <-msgs:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "bus closed")
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, m)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

// Link is a connection joining b to a remote bus.
type Link struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// Dial joins b to the bus served at url: messages published on either side
// reach the other. The link lasts until ctx ends, Close is called or the
// connection drops.
func (b *Bus) Dial(ctx context.Context, url string) (*Link, error) {
	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.Dial(dctx, url, nil)
	cancel()
	if err != nil {
		return nil, err
	}
	origin := b.newOrigin()
	msgs, unsubscribe := b.subscribe(64, origin)

	ctx, stop := context.WithCancel(ctx)
	l := &Link{done: make(chan struct{}), cancel: stop}
	go func() {
		defer close(l.done)
		defer unsubscribe()
		defer conn.CloseNow()
		l.err = b.relay(ctx, conn, origin, msgs)
		if errors.Is(l.err, context.Canceled) {
			l.err = nil
		}
		b.logger.Debug("bus link closed", "url", url, "err", l.err)
	}()
	return l, nil
}

// Done is closed when the link ends.
func (l *Link) Done() <-chan struct{} { return l.done }

// Close ends the link and waits for it to wind down.
func (l *Link) Close() error {
	l.cancel()
	<-l.done
	return l.err
}

// Err returns why the link ended, once Done is closed.
func (l *Link) Err() error {
	select {
	case <-l.done:
		return l.err
	default:
		return nil
	}
}
