// Package models defines the line-JSON envelope spoken over the daemon's
// Unix socket.
package models

import (
	"encoding/json"
	"net"
)

// Request is one command: {"id": 1, "method": "search.fulltext",
// "params": {...}}.
type Request struct {
	ID     int            `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// Response carries either a result or an error, never both. The type
// parameter lets clients decode straight into the expected result shape.
type Response[T any] struct {
	ID     int     `json:"id"`
	Result *T      `json:"result,omitempty"`
	Error  *string `json:"error,omitempty"`
}

// Respond writes a success response as one JSON line.
func Respond(conn net.Conn, id int, result any) {
	data, err := json.Marshal(Response[any]{ID: id, Result: &result})
	if err != nil {
		RespondError(conn, id, "failed to encode response")
		return
	}
	conn.Write(data)
	conn.Write([]byte("\n"))
}

// RespondError writes an error response as one JSON line.
func RespondError(conn net.Conn, id int, msg string) {
	data, _ := json.Marshal(Response[any]{ID: id, Error: &msg})
	conn.Write(data)
	conn.Write([]byte("\n"))
}
