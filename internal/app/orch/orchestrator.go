package orch

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/pinrelay/internal/app"
	"github.com/dkeye/pinrelay/internal/core"
	"github.com/dkeye/pinrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the connection router: it owns role/pin bindings,
// drives the registry and emits messages to the paired connection.
type Orchestrator struct {
	Sessions *app.SessionRegistry
	Conns    *app.ConnTable
	Policy   app.Policy

	// lifecycle orders a registry transition with the notifications it
	// emits, so a join and a teardown of the same session cannot interleave
	// their messages. Relays do not take it.
	lifecycle sync.Mutex
}

func New(policy app.Policy) *Orchestrator {
	if policy == nil {
		policy = app.DropPolicy{}
	}
	return &Orchestrator{
		Sessions: app.NewSessionRegistry(),
		Conns:    app.NewConnTable(),
		Policy:   policy,
	}
}

// Status is the read-only operational view served on /status.
type Status struct {
	ActiveSessions int          `json:"activeSessions"`
	Sessions       []domain.PIN `json:"sessions"`
}

func (o *Orchestrator) Status() Status {
	pins := o.Sessions.PINs()
	return Status{ActiveSessions: len(pins), Sessions: pins}
}

func (o *Orchestrator) OnConnect(id domain.ConnID, token string, sig core.SignalConnection) {
	o.Conns.Attach(id, token, sig)
}

// Handle dispatches one inbound message. Calls for a single connection
// must be serialized by the caller.
func (o *Orchestrator) Handle(id domain.ConnID, env core.Envelope) {
	conn, ok := o.Conns.Get(id)
	if !ok {
		log.Warn().Str("module", "orch").Str("conn", string(id)).Msg("message from unknown connection")
		return
	}

	switch env.Type {
	case core.MsgCreateSession:
		o.createSession(conn, env.Payload)
	case core.MsgJoinSession:
		o.joinSession(conn, env.Payload)
	case core.MsgOffer:
		o.relayOffer(conn, env.Payload)
	case core.MsgAnswer:
		o.relayAnswer(conn, env.Payload)
	case core.MsgICECandidate:
		o.relayCandidate(conn, env.Payload)
	case core.MsgTouchEvent:
		o.relayTouch(conn, env.Payload)
	case core.MsgEndSession:
		o.endSession(conn)
	default:
		log.Warn().Str("module", "orch").Str("conn", string(id)).Str("type", string(env.Type)).Msg("unknown signal")
	}
}

func (o *Orchestrator) send(id domain.ConnID, t core.MessageType, payload any) {
	frame, err := core.Encode(t, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("type", string(t)).Msg("encode")
		return
	}
	o.deliver(id, t, frame)
}

// relay forwards opaque bodies without re-encoding them.
func (o *Orchestrator) relay(id domain.ConnID, t core.MessageType, fields ...core.RawField) {
	frame, err := core.EncodeRaw(t, fields...)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("type", string(t)).Msg("encode relay")
		return
	}
	o.deliver(id, t, frame)
}

func (o *Orchestrator) deliver(id domain.ConnID, t core.MessageType, frame core.Frame) {
	conn, ok := o.Conns.Get(id)
	if !ok {
		log.Debug().Str("module", "orch").Str("conn", string(id)).Str("type", string(t)).Msg("send to detached connection")
		return
	}
	if err := conn.Signal.TrySend(frame); err != nil {
		o.onSendFailure(conn, t, err)
	}
}

func (o *Orchestrator) onSendFailure(conn app.Connection, t core.MessageType, err error) {
	logger := log.With().Str("module", "orch").Str("conn", string(conn.ID)).Str("type", string(t)).Logger()
	if o.Policy.OnBackPressure(conn) == app.KickConnection {
		logger.Warn().Err(err).Msg("send failed, kicking connection")
		conn.Signal.Close()
		return
	}
	logger.Warn().Err(err).Msg("send failed, message dropped")
}

func (o *Orchestrator) sendError(id domain.ConnID, text string) {
	o.send(id, core.MsgError, core.ErrorPayload{Message: text})
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(raw, v)
}
