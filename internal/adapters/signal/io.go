package signal

import (
	"context"
	"time"

	"github.com/dkeye/pinrelay/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(ctl.opts.WriteWait)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(c.id)
		cancel()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
		ctl.handleSignal(c, data)
	}
}

// handleSignal runs on the read loop, so one connection's messages are
// handled in arrival order.
func (ctl *SignalWSController) handleSignal(c *WsSignalConn, data []byte) {
	env, err := core.Decode(data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("bad json")
		ctl.sendJSON(c, core.MsgError, core.ErrorPayload{Message: core.ErrTextBadPayload})
		return
	}

	switch env.Type {
	case core.MsgPing:
		ctl.handlePing(c)
	case core.MsgJoinSession:
		if ctl.Limiter != nil && !ctl.Limiter.Allow(ctl.limiterKey(c)) {
			log.Warn().Str("module", "signal").Str("conn", string(c.id)).Str("sid", c.token).Msg("join rate limited")
			ctl.sendJSON(c, core.MsgError, core.ErrorPayload{Message: core.ErrTextTooManyJoins})
			return
		}
		ctl.Orch.Handle(c.id, env)
	default:
		ctl.Orch.Handle(c.id, env)
	}
}

func (ctl *SignalWSController) limiterKey(c *WsSignalConn) string {
	if c.token != "" {
		return c.token
	}
	return string(c.id)
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, t core.MessageType, payload any) {
	frame, err := core.Encode(t, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(frame)
}
