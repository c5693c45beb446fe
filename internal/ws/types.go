package ws

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady  = "ready"
	MsgStatus = "status"
	MsgPong   = "pong"
	MsgError  = "error"
)
