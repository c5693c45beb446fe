// Command ws_smoke connects to a running server's /ws endpoint for one
// wallet and prints every frame it receives.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"gold_mining/internal/logger"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	address := flag.String("address", "", "wallet address to watch")
	host := flag.String("host", "127.0.0.1:"+port, "server host:port")
	wait := flag.Duration("wait", 30*time.Second, "how long to listen")
	flag.Parse()

	if *address == "" {
		logger.Fatal("-address is required")
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws", RawQuery: "address=" + url.QueryEscape(*address)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Fatal("dial failed", "url", u.String(), "error", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		logger.Fatal("write ping", "error", err)
	}

	deadline := time.Now().Add(*wait)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		fmt.Println(string(msg))
	}

	logger.Info("smoke test finished")
}
