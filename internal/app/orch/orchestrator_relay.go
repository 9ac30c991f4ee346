package orch

import (
	"encoding/json"

	"github.com/dkeye/pinrelay/internal/app"
	"github.com/dkeye/pinrelay/internal/core"
	"github.com/dkeye/pinrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// counterpart resolves the party opposite to conn in the session named by
// pinField. The payload pin may be omitted; when present it must match the
// bound one.
func (o *Orchestrator) counterpart(conn app.Connection, pinField string, role domain.Role) (domain.ConnID, bool) {
	if conn.Role != role {
		return "", false
	}
	if pinField != "" && domain.PIN(pinField) != conn.PIN {
		return "", false
	}
	sess, err := o.Sessions.Get(conn.PIN)
	if err != nil || !sess.Holds(role, conn.ID) {
		return "", false
	}
	return sess.Counterpart(role)
}

func (o *Orchestrator) relayOffer(conn app.Connection, raw json.RawMessage) {
	var p core.OfferPayload
	if err := decode(raw, &p); err != nil || len(p.Offer) == 0 {
		log.Error().Err(err).Str("module", "orch").Msg("bad offer payload")
		o.sendError(conn.ID, core.ErrTextBadPayload)
		return
	}
	viewer, ok := o.counterpart(conn, p.PIN, domain.RoleHost)
	if !ok {
		o.sendError(conn.ID, core.ErrTextNoViewer)
		return
	}
	log.Debug().Str("module", "orch").Str("conn", string(conn.ID)).Str("to", string(viewer)).Msg("forwarding offer")
	o.relay(viewer, core.MsgOffer, core.RawField{Key: "offer", Value: p.Offer})
}

func (o *Orchestrator) relayAnswer(conn app.Connection, raw json.RawMessage) {
	var p core.AnswerPayload
	if err := decode(raw, &p); err != nil || len(p.Answer) == 0 {
		log.Error().Err(err).Str("module", "orch").Msg("bad answer payload")
		o.sendError(conn.ID, core.ErrTextBadPayload)
		return
	}
	host, ok := o.counterpart(conn, p.PIN, domain.RoleViewer)
	if !ok {
		o.sendError(conn.ID, core.ErrTextHostNotFound)
		return
	}
	log.Debug().Str("module", "orch").Str("conn", string(conn.ID)).Str("to", string(host)).Msg("forwarding answer")
	o.relay(host, core.MsgAnswer, core.RawField{Key: "answer", Value: p.Answer})
}

// Candidates may race with teardown, so every failure is silent.
func (o *Orchestrator) relayCandidate(conn app.Connection, raw json.RawMessage) {
	var p core.CandidatePayload
	if err := decode(raw, &p); err != nil || len(p.Candidate) == 0 {
		return
	}
	to, ok := o.counterpart(conn, p.PIN, conn.Role)
	if !ok {
		return
	}
	o.relay(to, core.MsgICECandidate, core.RawField{Key: "candidate", Value: p.Candidate})
}

func (o *Orchestrator) relayTouch(conn app.Connection, raw json.RawMessage) {
	var p core.TouchPayload
	if err := decode(raw, &p); err != nil {
		return
	}
	host, ok := o.counterpart(conn, p.PIN, domain.RoleViewer)
	if !ok {
		return
	}
	o.relay(host, core.MsgTouchEvent,
		core.RawField{Key: "x", Value: p.X},
		core.RawField{Key: "y", Value: p.Y},
		core.RawField{Key: "action", Value: p.Action},
	)
}
