package signal

import "github.com/dkeye/pinrelay/internal/core"

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, core.MsgPong, nil)
}
