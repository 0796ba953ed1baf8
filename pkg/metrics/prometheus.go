package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/logger"
)

// PrometheusConfig holds Prometheus server configuration
type PrometheusConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// PrometheusHandler serves the collector state in Prometheus text format
type PrometheusHandler struct {
	collector *Collector
}

// NewPrometheusHandler creates a new Prometheus handler
func NewPrometheusHandler(collector *Collector) *PrometheusHandler {
	return &PrometheusHandler{collector: collector}
}

// ServeHTTP handles HTTP requests for metrics
func (h *PrometheusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	var output strings.Builder

	writeCounter := func(name, help string, value uint64) {
		output.WriteString(fmt.Sprintf("# HELP %s %s\n", name, help))
		output.WriteString(fmt.Sprintf("# TYPE %s counter\n", name))
		output.WriteString(fmt.Sprintf("%s %d\n", name, value))
	}

	writeCounter("ym2610_commands_processed_total", "Total source commands translated",
		h.collector.GetCommandsProcessed())
	writeCounter("ym2610_pcm_blocks_total", "Total sample blocks extracted",
		h.collector.GetPCMBlocks())
	writeCounter("ym2610_pcm_bytes_total", "Total sample bytes extracted",
		h.collector.GetPCMBytes())
	writeCounter("ym2610_dac_blocks_encoded_total", "Total DAC blocks encoded to ADPCM-B",
		h.collector.GetDACBlocksEncoded())
	writeCounter("ym2610_dropped_writes_total", "Total unsupported writes dropped",
		h.collector.GetDroppedWrites())
	writeCounter("ym2610_bytes_uploaded_total", "Total bytes uploaded to the device",
		h.collector.GetBytesUploaded())
	writeCounter("ym2610_rebuffer_requests_total", "Total re-buffering requests serviced",
		h.collector.GetRebufferRequests())

	w.Write([]byte(output.String()))
}

// PrometheusServer is an HTTP server for Prometheus metrics
type PrometheusServer struct {
	config    PrometheusConfig
	collector *Collector
	log       *logger.Logger
	server    *http.Server
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(config PrometheusConfig, collector *Collector, log *logger.Logger) *PrometheusServer {
	return &PrometheusServer{
		config:    config,
		collector: collector,
		log:       log.WithComponent("metrics"),
	}
}

// Start starts the metrics server and blocks until the context is
// cancelled.
func (s *PrometheusServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(s.config.Path, NewPrometheusHandler(s.collector))

	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{Handler: mux}

	s.log.Info("starting metrics server",
		logger.Int("port", listener.Addr().(*net.TCPAddr).Port),
		logger.String("path", s.config.Path))

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
