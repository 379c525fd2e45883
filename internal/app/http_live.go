package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"folio/api/internal/pagetree"
)

const (
	liveWriteWait  = 5 * time.Second
	livePingPeriod = 30 * time.Second
	livePongWait   = 2 * livePingPeriod
)

func (s *HTTPServer) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 32 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || s.corsOrigin == "*" {
				return true
			}
			return origin == s.corsOrigin
		},
	}
}

// handleLiveTree streams the workspace tree over a WebSocket, one JSON tree
// per change. Slow clients only ever see the latest tree.
func (s *HTTPServer) handleLiveTree(w http.ResponseWriter, r *http.Request, workspaceID string) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates := make(chan pagetree.Tree, 1)
	unsubscribe, err := s.projector.Subscribe(ctx, workspaceID, func(tree pagetree.Tree) {
		select {
		case <-updates:
		default:
		}
		updates <- tree
	})
	if err != nil {
		status, code, message, details := mapError(storeError("subscribe tree", err))
		writeError(w, status, code, message, details)
		return
	}
	defer unsubscribe()

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("workspace", workspaceID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.log.Debug().Err(err).Str("workspace", workspaceID).Msg("live tree client went away")
				}
				return
			}
		}
	}()

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(liveWriteWait))
			return
		case tree := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(tree); err != nil {
				s.log.Debug().Err(err).Str("workspace", workspaceID).Msg("live tree write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}
