package progress

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // OK for demo; restrict in production
	},
}

// WSHandler upgrades the connection and parks it on the hub. Generation
// progress flows server -> client only; whatever the client sends is
// read and dropped, the read loop just detects the disconnect.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		hub.Add(ws)
		log.Printf("[ws] watcher connected (%d total)", hub.Stats().Clients)

		welcome := fmt.Sprintf(
			`{"type":"welcome","events":["%s","%s","%s","%s"]}`+"\n",
			EventStoryGenerated, EventIllustrationPage, EventIllustrationDone, EventStorySaved,
		)
		_ = ws.WriteMessage(websocket.TextMessage, []byte(welcome))

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.Remove(ws)
		log.Printf("[ws] watcher disconnected (%d total)", hub.Stats().Clients)
	}
}
