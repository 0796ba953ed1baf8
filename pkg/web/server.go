package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/config"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/logger"
)

// Status is the player state snapshot served by the API
type Status struct {
	Track            string `json:"track"`
	VGMBytes         int    `json:"vgm_bytes"`
	PCMBlocks        int    `json:"pcm_blocks"`
	PCMBytes         uint64 `json:"pcm_bytes"`
	BytesUploaded    uint64 `json:"bytes_uploaded"`
	RebufferRequests uint64 `json:"rebuffer_requests"`
	Clients          int    `json:"clients"`
}

// StatusFunc supplies the current player state
type StatusFunc func() Status

// Server is the dashboard HTTP server
type Server struct {
	config config.WebConfig
	log    *logger.Logger
	hub    *Hub
	status StatusFunc
	server *http.Server
}

// NewServer creates a dashboard server
func NewServer(cfg config.WebConfig, status StatusFunc, log *logger.Logger) *Server {
	return &Server{
		config: cfg,
		log:    log.WithComponent("web"),
		hub:    NewHub(log),
		status: status,
	}
}

// Hub returns the event hub for broadcasting player events
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("dashboard disabled")
		return nil
	}

	go s.hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.hub.handleWebSocket)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{Handler: mux}

	s.log.Info("dashboard listening", logger.String("addr", listener.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{}
	if s.status != nil {
		status = s.status()
	}
	status.Clients = s.hub.ClientCount()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.log.Error("failed to encode status", logger.Error(err))
	}
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>ym2610-pcb</title></head>
<body>
<h1>ym2610-pcb player</h1>
<pre id="status">connecting...</pre>
<pre id="events"></pre>
<script>
fetch("/api/status").then(r => r.json()).then(s => {
  document.getElementById("status").textContent = JSON.stringify(s, null, 2);
});
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = e => {
  const log = document.getElementById("events");
  log.textContent = e.data + "\n" + log.textContent;
};
</script>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexPage)
}
