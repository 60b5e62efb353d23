package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/EpicMandM/room-booking/internal/logger"
	"github.com/EpicMandM/room-booking/internal/models"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// WebSocketPush receives booking push events over a websocket. After a
// dropped connection it redials, paced by a rate limiter, until Close.
type WebSocketPush struct {
	url     string
	dialer  *websocket.Dialer
	logger  *logger.Logger
	limiter *rate.Limiter
	events  chan models.PushEvent
	// reconnected holds at most one pending signal.
	reconnected chan struct{}

	mu      sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	closed  bool
}

// NewWebSocketPush creates an unconnected push client.
func NewWebSocketPush(url string, reconnectInterval time.Duration, bufferSize int, log *logger.Logger) *WebSocketPush {
	if log == nil {
		log = logger.NewNop()
	}
	if reconnectInterval <= 0 {
		reconnectInterval = time.Second
	}
	return &WebSocketPush{
		url:     url,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:  log,
		limiter: rate.NewLimiter(rate.Every(reconnectInterval), 1),
		events:  make(chan models.PushEvent, bufferSize),
		done:    make(chan struct{}),

		reconnected: make(chan struct{}, 1),
	}
}

// Events returns the channel push events are delivered on. It is closed
// once the client is closed.
func (p *WebSocketPush) Events() <-chan models.PushEvent {
	return p.events
}

// Reconnected signals each time the client redials after a dropped
// connection. Events sent while disconnected are lost, so receivers should
// refetch state. Signals coalesce.
func (p *WebSocketPush) Reconnected() <-chan struct{} {
	return p.reconnected
}

// Connect dials the push endpoint and starts the read loop. ctx bounds the
// dial only; the connection lives until Close.
func (p *WebSocketPush) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("push channel closed")
	}
	if p.started {
		p.mu.Unlock()
		return errors.New("push channel already connected")
	}
	p.mu.Unlock()

	conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return fmt.Errorf("dial push channel %s: %w", p.url, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	if p.closed || p.started {
		p.mu.Unlock()
		cancel()
		_ = conn.Close()
		return errors.New("push channel closed")
	}
	p.conn = conn
	p.cancel = cancel
	p.started = true
	p.mu.Unlock()

	p.logger.Info("Push channel connected", logger.Action("push"), logger.Status("connected"), logger.URL(p.url))
	go p.run(runCtx, conn)
	return nil
}

// Close stops the read loop, closes the connection and the events channel.
// It is safe to call more than once.
func (p *WebSocketPush) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	conn := p.conn
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	if !started {
		close(p.events)
		return nil
	}

	// The read loop may already have closed conn; errors here are expected.
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	<-p.done
	p.logger.Info("Push channel closed", logger.Action("push"), logger.Status("closed"))
	return nil
}

func (p *WebSocketPush) run(ctx context.Context, conn *websocket.Conn) {
	defer close(p.done)
	defer close(p.events)

	for {
		err := p.readLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("Push channel disconnected", logger.Action("push"), logger.Status("disconnected"), logger.Error(err))

		conn = p.redial(ctx)
		if conn == nil {
			return
		}
	}
}

func (p *WebSocketPush) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := models.DecodePushEvent(frame)
		if errors.Is(err, models.ErrUnknownEvent) {
			p.logger.Debug("Ignoring push event", logger.Event(string(ev.Kind)), logger.Reason("unknown_event"))
			continue
		}
		if err != nil {
			p.logger.Warn("Malformed push frame", logger.Action("push"), logger.Error(err))
			continue
		}

		select {
		case p.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// redial returns a fresh connection, or nil once ctx is done.
func (p *WebSocketPush) redial(ctx context.Context) *websocket.Conn {
	for attempt := 1; ; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil
		}
		conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn("Push channel reconnect failed", logger.Action("push"), logger.Attempt(attempt), logger.Error(err))
			continue
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = conn.Close()
			return nil
		}
		p.conn = conn
		p.mu.Unlock()

		p.logger.Info("Push channel reconnected", logger.Action("push"), logger.Status("connected"), logger.Attempt(attempt))
		select {
		case p.reconnected <- struct{}{}:
		default:
		}
		return conn
	}
}
