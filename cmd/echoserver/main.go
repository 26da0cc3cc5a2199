// Command echoserver runs a local WebSocket endpoint for exercising the
// client: it answers heartbeat pings with pongs and echoes every other
// frame back verbatim.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	addr := flag.String("addr", ":8765", "listen address")
	flag.Parse()

	http.HandleFunc("/ws", serveWS)
	log.Printf("echo server listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("client connected: %s", r.RemoteAddr)

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("client gone: %s", r.RemoteAddr)
			return
		}

		var env struct {
			Type        string `json:"type"`
			MessageType string `json:"messageType"`
		}
		if json.Unmarshal(data, &env) == nil && (env.Type == "ping" || env.MessageType == "ping") {
			pong, _ := json.Marshal(map[string]any{
				"messageType": "pong",
				"timestamp":   time.Now().UnixMilli(),
			})
			if err := conn.WriteMessage(websocket.TextMessage, pong); err != nil {
				return
			}
			continue
		}

		if err := conn.WriteMessage(typ, data); err != nil {
			return
		}
	}
}
