package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/config"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/logger"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/metrics"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/preprocess"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/usb"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/vgm"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/web"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <vgm_path>\n", os.Args[0])
		os.Exit(1)
	}
	vgmPath := flag.Arg(0)

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	// Read and convert the track before touching the device.

	source, err := vgm.Read(vgmPath)
	if err != nil {
		log.Error("failed to read VGM", logger.Error(err))
		os.Exit(1)
	}

	collector := metrics.NewCollector()

	processed, err := preprocess.New(log).WithMetrics(collector).Preprocess(source, preprocess.Options{
		ByteswapPCM: cfg.Conversion.ByteswapPCM,
		WriteWAV:    cfg.Conversion.WriteWAV,
		TargetClock: cfg.Conversion.TargetClock,
	})
	if err != nil {
		log.Error("preprocessing failed", logger.Error(err))
		os.Exit(1)
	}

	log.Info("processed VGM",
		logger.String("track", vgmPath),
		logger.Hex("size", len(processed.Data)),
		logger.Int("pcm_blocks", len(processed.Blocks.Blocks)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	// Optional status surfaces.

	pcmBytes := uint64(0)
	for _, block := range processed.Blocks.Blocks {
		pcmBytes += uint64(len(block.Data))
	}

	dashboard := web.NewServer(cfg.Web, func() web.Status {
		return web.Status{
			Track:            vgmPath,
			VGMBytes:         len(processed.Data),
			PCMBlocks:        len(processed.Blocks.Blocks),
			PCMBytes:         pcmBytes,
			BytesUploaded:    collector.GetBytesUploaded(),
			RebufferRequests: collector.GetRebufferRequests(),
		}
	}, log)

	if cfg.Web.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dashboard.Start(ctx); err != nil {
				log.Error("dashboard failed", logger.Error(err))
			}
		}()
	}

	if cfg.Metrics.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			server := metrics.NewPrometheusServer(metrics.PrometheusConfig{
				Enabled: cfg.Metrics.Enabled,
				Port:    cfg.Metrics.Port,
				Path:    cfg.Metrics.Path,
			}, collector, log)
			if err := server.Start(ctx); err != nil {
				log.Error("metrics server failed", logger.Error(err))
			}
		}()
	}

	// Device upload: PCM banks first, then the stream, then playback.

	device, err := usb.Open(cfg.Device.VendorID, cfg.Device.ProductID, log)
	if err != nil {
		log.Error("failed to open device", logger.Error(err))
		os.Exit(1)
	}

	uploader := usb.NewUploader(device, log)

	for _, block := range processed.Blocks.Blocks {
		if err := uploader.UploadPCM(block); err != nil {
			log.Error("PCM upload failed", logger.Error(err))
			device.Close()
			os.Exit(1)
		}
		collector.BytesUploaded(len(block.Data))
	}

	if err := uploader.UploadVGM(processed.Data, 0, true); err != nil {
		log.Error("VGM upload failed", logger.Error(err))
		device.Close()
		os.Exit(1)
	}
	collector.BytesUploaded(len(processed.Data))

	log.Info("playback started")
	dashboard.Hub().Broadcast("playback_started", map[string]interface{}{
		"track": vgmPath,
	})

	// The poller owns the status endpoint until interrupted or a device
	// error kills it.

	poller := usb.NewPoller(device, uploader, processed.Data, log)
	poller.OnRequest = func(msg usb.StatusMessage) {
		collector.RebufferRequest()
		collector.BytesUploaded(int(msg.ChunkLength))
		dashboard.Hub().Broadcast("rebuffer", map[string]interface{}{
			"target_offset": msg.TargetOffset,
			"vgm_offset":    msg.VGMOffset,
			"length":        msg.ChunkLength,
		})
	}

	pollErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		pollErr <- poller.Run(ctx)
	}()

	exitCode := 0
	select {
	case sig := <-sigChan:
		log.Info("shutting down", logger.String("signal", sig.String()))
		exitCode = 1
	case err := <-pollErr:
		if err != nil && ctx.Err() == nil {
			log.Error("status poller terminated", logger.Error(err))
			exitCode = 1
		}
	}

	cancel()
	wg.Wait()
	device.Close()
	os.Exit(exitCode)
}
