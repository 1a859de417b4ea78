package server

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"path/filepath"

	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/server/models"
)

const APIVersion = 1

type ServerInfo struct {
	APIVersion int `json:"apiVersion"`
}

type UnixServer struct {
	router     *Router
	socketPath string
	listener   net.Listener
}

func NewUnix(router *Router, socketPath string) *UnixServer {
	return &UnixServer{
		router:     router,
		socketPath: socketPath,
	}
}

func (s *UnixServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	srvInfoData, _ := json.Marshal(ServerInfo{
		APIVersion: APIVersion,
	})
	conn.Write(srvInfoData)
	conn.Write([]byte("\n"))

	scanner := bufio.NewScanner(conn)
	// Large updates (notes, criteria) can exceed the 64KB default
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)
	if scanner.Scan() {
		line := scanner.Bytes()

		var req models.Request
		if err := json.Unmarshal(line, &req); err != nil {
			models.RespondError(conn, 0, "invalid json")
			return
		}

		s.router.RouteRequest(conn, req)
	}
}

func (s *UnixServer) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return err
	}
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	s.listener = listener

	log.Infof("paperdex API server listening on: %s", s.socketPath)
	log.Info("Protocol: JSON over Unix socket")
	log.Info("Request format: {\"id\": <any>, \"method\": \"...\", \"params\": {...}}")
	log.Info("Response format: {\"id\": <any>, \"result\": {...}} or {\"id\": <any>, \"error\": \"...\"}")

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConnection(conn)
	}
}

func (s *UnixServer) Close() error {
	if s.listener != nil {
		err := s.listener.Close()
		os.Remove(s.socketPath)
		return err
	}
	return nil
}
