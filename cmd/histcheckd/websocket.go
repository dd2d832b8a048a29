package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dbhist/histcheck/internal/checkrun"
	"github.com/dbhist/histcheck/internal/sccdriver"
	"github.com/dbhist/histcheck/pkg/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1 << 20,
	WriteBufferSize: 1 << 20,
}

// progressEvent is one JSON message pushed over the socket per completed
// SCC, mirroring sccdriver.SCCEvent.
type progressEvent struct {
	Type      string   `json:"type"`
	SCCSize   int      `json:"scc_size,omitempty"`
	TimedOut  bool     `json:"timed_out,omitempty"`
	Anomalies []string `json:"anomalies,omitempty"`
}

// doneEvent is the final message, carrying the same payload handleCheck
// returns over plain HTTP.
type doneEvent struct {
	Type   string        `json:"type"`
	Result checkResponse `json:"result"`
}

// errorEvent reports a request or run failure and ends the connection.
type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func sendJSON(ws *websocket.Conn, v any) error {
	return ws.WriteJSON(v)
}

// handleCheckWS upgrades the connection, reads exactly one checkRequest
// JSON message, then streams one progressEvent per completed SCC
// followed by a single doneEvent — the websocket counterpart to
// POST /v1/check for a caller that wants live progress instead of
// waiting on the whole run.
func handleCheckWS(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", "error", err.Error())
			return
		}
		defer ws.Close()

		var req checkRequest
		if err := ws.ReadJSON(&req); err != nil {
			sendJSON(ws, errorEvent{Type: "error", Error: "reading request: " + err.Error()})
			return
		}
		if err := validateRequest(&req); err != nil {
			sendJSON(ws, errorEvent{Type: "error", Error: err.Error()})
			return
		}

		res, err := checkrun.Run(c.Request.Context(), logger.Slog(), &req.History, req.Options, func(e sccdriver.SCCEvent) {
			sendJSON(ws, progressEvent{
				Type:      "progress",
				SCCSize:   e.SCCSize,
				TimedOut:  e.TimedOut,
				Anomalies: e.Anomalies,
			})
		})
		if err != nil {
			sendJSON(ws, errorEvent{Type: "error", Error: err.Error()})
			return
		}

		sendJSON(ws, doneEvent{Type: "done", Result: toCheckResponse(res)})
	}
}
