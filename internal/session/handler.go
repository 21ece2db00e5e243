package session

import (
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/kapu/chess-relay/internal/config"
	"github.com/kapu/chess-relay/internal/obslog"
)

// Handler upgrades requests to websockets and runs a Session per connection
// on the handler goroutine.
func Handler(hub Coordinator, cfg *config.AppConfig) http.Handler {
	log := obslog.L().Named("ws")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns:  cfg.AllowedOrigins,
			CompressionMode: websocket.CompressionNoContextTakeover,
		})
		if err != nil {
			log.Warn("accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
		New(hub, conn, cfg.HeartbeatInterval, cfg.HeartbeatTimeout).Run(r.Context())
	})
}
