package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades GET /ws and keeps the client registered until it disconnects.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		if err := ws.WriteMessage(websocket.TextMessage, hub.welcome("websocket")); err != nil {
			_ = ws.Close()
			return
		}
		hub.AddWS(ws)
		hub.log.Info("feed client connected", "transport", "websocket", "remote", c.Request.RemoteAddr)

		// incoming messages are ignored
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		hub.log.Info("feed client disconnected", "transport", "websocket", "remote", c.Request.RemoteAddr)
	}
}
