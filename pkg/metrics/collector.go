// Package metrics collects pipeline and transport counters and exposes
// them in Prometheus text format.
package metrics

import "sync"

// Collector accumulates transcoding and upload metrics
type Collector struct {
	mu sync.RWMutex

	// Pipeline metrics
	commandsProcessed uint64
	pcmBlocks         uint64
	pcmBytes          uint64
	dacBlocksEncoded  uint64
	droppedWrites     uint64

	// Transport metrics
	bytesUploaded    uint64
	rebufferRequests uint64
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{}
}

// CommandProcessed records one translated source command
func (c *Collector) CommandProcessed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commandsProcessed++
}

// PCMBlockExtracted records one extracted sample block of the given size
func (c *Collector) PCMBlockExtracted(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pcmBlocks++
	c.pcmBytes += uint64(size)
}

// DACBlockEncoded records one DAC timeline block encoded to ADPCM-B
func (c *Collector) DACBlockEncoded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dacBlocksEncoded++
}

// WritesDropped records unsupported source writes that were discarded
func (c *Collector) WritesDropped(count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.droppedWrites += uint64(count)
}

// BytesUploaded records a completed device upload
func (c *Collector) BytesUploaded(count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytesUploaded += uint64(count)
}

// RebufferRequest records one serviced re-buffering request
func (c *Collector) RebufferRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebufferRequests++
}

// GetCommandsProcessed returns the translated command count
func (c *Collector) GetCommandsProcessed() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.commandsProcessed
}

// GetPCMBlocks returns the extracted block count
func (c *Collector) GetPCMBlocks() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pcmBlocks
}

// GetPCMBytes returns the total extracted sample bytes
func (c *Collector) GetPCMBytes() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pcmBytes
}

// GetDACBlocksEncoded returns the encoded DAC block count
func (c *Collector) GetDACBlocksEncoded() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dacBlocksEncoded
}

// GetDroppedWrites returns the dropped write count
func (c *Collector) GetDroppedWrites() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.droppedWrites
}

// GetBytesUploaded returns the total uploaded bytes
func (c *Collector) GetBytesUploaded() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bytesUploaded
}

// GetRebufferRequests returns the serviced re-buffering request count
func (c *Collector) GetRebufferRequests() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rebufferRequests
}
