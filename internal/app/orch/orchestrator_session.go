package orch

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/pinrelay/internal/app"
	"github.com/dkeye/pinrelay/internal/core"
	"github.com/dkeye/pinrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) createSession(conn app.Connection, raw json.RawMessage) {
	if conn.Bound() {
		o.sendError(conn.ID, core.ErrTextPINInUse)
		return
	}
	var p core.PINPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Error().Err(err).Str("module", "orch").Msg("bad create payload")
			o.sendError(conn.ID, core.ErrTextBadPayload)
			return
		}
	}

	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	var (
		sess domain.Session
		err  error
	)
	if p.PIN == "" {
		sess, err = o.Sessions.CreateRandom(conn.ID)
	} else {
		var pin domain.PIN
		if pin, err = domain.ValidatePIN(p.PIN); err == nil {
			sess, err = o.Sessions.Create(pin, conn.ID)
		}
	}
	switch {
	case errors.Is(err, domain.ErrInvalidPIN):
		o.sendError(conn.ID, core.ErrTextInvalidPIN)
		return
	case errors.Is(err, domain.ErrDuplicatePIN):
		log.Info().Str("module", "orch").Str("conn", string(conn.ID)).Str("pin", p.PIN).Msg("create rejected, pin in use")
		o.sendError(conn.ID, core.ErrTextPINInUse)
		return
	case err != nil:
		log.Error().Err(err).Str("module", "orch").Str("conn", string(conn.ID)).Msg("create session")
		o.sendError(conn.ID, core.ErrTextPINUnavailable)
		return
	}

	if err := o.Conns.Bind(conn.ID, domain.RoleHost, sess.PIN); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("conn", string(conn.ID)).Msg("bind host")
		_, _ = o.Sessions.RemoveHostedBy(sess.PIN, conn.ID)
		o.sendError(conn.ID, core.ErrTextPINInUse)
		return
	}
	o.send(conn.ID, core.MsgSessionCreated, core.PINPayload{PIN: string(sess.PIN)})
}

func (o *Orchestrator) joinSession(conn app.Connection, raw json.RawMessage) {
	if conn.Bound() {
		o.sendError(conn.ID, core.ErrTextViewerPresent)
		return
	}
	var p core.PINPayload
	if err := decode(raw, &p); err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("bad join payload")
		o.sendError(conn.ID, core.ErrTextBadPayload)
		return
	}
	pin, err := domain.ValidatePIN(p.PIN)
	if err != nil {
		o.sendError(conn.ID, core.ErrTextInvalidPIN)
		return
	}

	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	sess, err := o.Sessions.SetViewer(pin, conn.ID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		log.Info().Str("module", "orch").Str("conn", string(conn.ID)).Str("pin", string(pin)).Msg("join rejected, no session")
		o.sendError(conn.ID, core.ErrTextInvalidPIN)
		return
	case errors.Is(err, domain.ErrViewerPresent):
		log.Info().Str("module", "orch").Str("conn", string(conn.ID)).Str("pin", string(pin)).Msg("join rejected, viewer present")
		o.sendError(conn.ID, core.ErrTextViewerPresent)
		return
	case err != nil:
		log.Error().Err(err).Str("module", "orch").Msg("join session")
		o.sendError(conn.ID, core.ErrTextInvalidPIN)
		return
	}

	if err := o.Conns.Bind(conn.ID, domain.RoleViewer, pin); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("conn", string(conn.ID)).Msg("bind viewer")
		_, _ = o.Sessions.ClearViewerOf(pin, conn.ID)
		o.sendError(conn.ID, core.ErrTextViewerPresent)
		return
	}
	o.send(conn.ID, core.MsgSessionJoined, core.PINPayload{PIN: string(pin)})
	o.send(sess.Host, core.MsgViewerJoined, core.ViewerJoinedPayload{ViewerID: conn.ID})
}

func (o *Orchestrator) endSession(conn app.Connection) {
	if !conn.Bound() {
		return
	}
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	sess, err := o.Sessions.EndBy(conn.PIN, conn.ID)
	if err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("conn", string(conn.ID)).Msg("end session ignored")
		return
	}
	log.Info().Str("module", "orch").Str("pin", string(sess.PIN)).Str("by", conn.Role.String()).Msg("session ended by user")
	o.notifySessionEnded(sess)
}

func (o *Orchestrator) notifySessionEnded(sess domain.Session) {
	if sess.HasViewer() {
		o.send(sess.Viewer, core.MsgSessionEnded, nil)
	}
	o.send(sess.Host, core.MsgSessionEnded, nil)
}

// OnDisconnect runs the session lifecycle for a socket the transport lost.
func (o *Orchestrator) OnDisconnect(id domain.ConnID) {
	conn, ok := o.Conns.Detach(id)
	if !ok {
		return
	}
	logger := log.With().Str("module", "orch").Str("conn", string(id)).Str("role", conn.Role.String()).Str("pin", string(conn.PIN)).Logger()
	if !conn.Bound() {
		logger.Debug().Msg("unbound connection closed")
		return
	}

	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	switch conn.Role {
	case domain.RoleHost:
		sess, err := o.Sessions.RemoveHostedBy(conn.PIN, id)
		if err != nil {
			logger.Debug().Err(err).Msg("host gone, session already closed")
			return
		}
		if sess.HasViewer() {
			o.send(sess.Viewer, core.MsgHostDisconnected, nil)
		}
		logger.Info().Msg("session deleted, host disconnected")
	case domain.RoleViewer:
		sess, err := o.Sessions.ClearViewerOf(conn.PIN, id)
		if err != nil {
			logger.Debug().Err(err).Msg("viewer gone, slot already released")
			return
		}
		o.send(sess.Host, core.MsgViewerDisconnected, nil)
		logger.Info().Msg("viewer left session")
	}
}
