package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/pinrelay/internal/app/orch"
	"github.com/dkeye/pinrelay/internal/core"
	"github.com/dkeye/pinrelay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:  65536,
		PingPeriod: 54 * time.Second,
		PongWait:   60 * time.Second,
		WriteWait:  5 * time.Second,
		SendBuffer: 32,
	}
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Limiter *JoinLimiter
	opts    Options
}

func NewSignalWSController(o *orch.Orchestrator, limiter *JoinLimiter, opts Options) *SignalWSController {
	def := DefaultOptions()
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = def.ReadLimit
	}
	if opts.PingPeriod <= 0 || opts.PongWait <= opts.PingPeriod {
		opts.PingPeriod, opts.PongWait = def.PingPeriod, def.PongWait
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = def.WriteWait
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	return &SignalWSController{
		Orch:    o,
		Limiter: limiter,
		opts:    opts,
	}
}

// WsSignalConn implements core.SignalConnection over one websocket.
type WsSignalConn struct {
	id    domain.ConnID
	token string
	conn  *websocket.Conn
	send  chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		id:    domain.ConnID(uuid.NewString()),
		token: token,
		conn:  ws,
		send:  make(chan core.Frame, ctl.opts.SendBuffer),
	}
	log.Info().Str("module", "signal").Str("sid", token).Str("conn", string(conn.id)).Msg("new WS connection")

	ctl.Orch.OnConnect(conn.id, token, conn)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}
