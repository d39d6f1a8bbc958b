package server

import (
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// handleProgressSocket handles GET /ws/progress. Each connection gets a
// bus subscription and receives evaluation progress events as JSON until
// the client disconnects.
func (s *Server) handleProgressSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	if s.bus == nil {
		conn.Close(websocket.StatusNormalClosure, "no event source")
		return
	}

	ch, cancel := s.bus.Subscribe()
	defer cancel()

	ctx := r.Context()
	s.log.Debug().Str("remote", r.RemoteAddr).Msg("progress subscriber connected")

	// Reader goroutine notices client-initiated close.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ping.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		case ev, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				s.log.Debug().Err(err).Msg("progress subscriber write failed")
				return
			}
		}
	}
}
