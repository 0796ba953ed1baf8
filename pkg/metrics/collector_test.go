package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()

	c.CommandProcessed()
	c.CommandProcessed()
	c.PCMBlockExtracted(0x8000)
	c.PCMBlockExtracted(0x100)
	c.DACBlockEncoded()
	c.WritesDropped(3)
	c.BytesUploaded(1024)
	c.RebufferRequest()

	if got := c.GetCommandsProcessed(); got != 2 {
		t.Errorf("Expected 2 commands, got %d", got)
	}
	if got := c.GetPCMBlocks(); got != 2 {
		t.Errorf("Expected 2 blocks, got %d", got)
	}
	if got := c.GetPCMBytes(); got != 0x8100 {
		t.Errorf("Expected 0x8100 bytes, got %#x", got)
	}
	if got := c.GetDACBlocksEncoded(); got != 1 {
		t.Errorf("Expected 1 encoded block, got %d", got)
	}
	if got := c.GetDroppedWrites(); got != 3 {
		t.Errorf("Expected 3 dropped writes, got %d", got)
	}
	if got := c.GetBytesUploaded(); got != 1024 {
		t.Errorf("Expected 1024 uploaded bytes, got %d", got)
	}
	if got := c.GetRebufferRequests(); got != 1 {
		t.Errorf("Expected 1 rebuffer request, got %d", got)
	}
}

func TestCollectorConcurrency(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.CommandProcessed()
				c.BytesUploaded(1)
			}
		}()
	}
	wg.Wait()

	if got := c.GetCommandsProcessed(); got != 1000 {
		t.Errorf("Expected 1000 commands, got %d", got)
	}
	if got := c.GetBytesUploaded(); got != 1000 {
		t.Errorf("Expected 1000 bytes, got %d", got)
	}
}

func TestPrometheusHandler(t *testing.T) {
	c := NewCollector()
	c.CommandProcessed()
	c.RebufferRequest()
	c.RebufferRequest()

	handler := NewPrometheusHandler(c)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Result().Body)
	output := string(body)

	for _, want := range []string{
		"ym2610_commands_processed_total 1",
		"ym2610_rebuffer_requests_total 2",
		"# TYPE ym2610_pcm_blocks_total counter",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, output)
		}
	}
}
