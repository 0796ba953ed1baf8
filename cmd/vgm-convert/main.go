package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dan-rodrigues/ym2610-pcb/pkg/chip"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/config"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/database"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/logger"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/preprocess"
	"github.com/dan-rodrigues/ym2610-pcb/pkg/vgm"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <input_path> <output_path>\n", os.Args[0])
		os.Exit(1)
	}
	inputPath := flag.Arg(0)
	outputPath := flag.Arg(1)

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	source, err := vgm.Read(inputPath)
	if err != nil {
		log.Error("failed to read VGM", logger.Error(err))
		os.Exit(1)
	}

	processor := preprocess.New(log)
	processed, err := processor.Preprocess(source, preprocess.Options{
		RewritePCM:  true,
		ByteswapPCM: false,
		WriteWAV:    cfg.Conversion.WriteWAV,
		TargetClock: cfg.Conversion.TargetClock,
	})
	if err != nil {
		log.Error("preprocessing failed", logger.Error(err))
		os.Exit(1)
	}

	if err := os.WriteFile(outputPath, processed.Data, 0644); err != nil {
		log.Error("failed to write output", logger.Error(err))
		os.Exit(1)
	}

	log.Info("converted VGM",
		logger.String("input", inputPath),
		logger.String("output", outputPath),
		logger.Hex("size", len(processed.Data)),
		logger.Int("pcm_blocks", len(processed.Blocks.Blocks)))

	if cfg.Database.Enabled {
		recordConversion(cfg, log, inputPath, source, processed)
	}
}

// recordConversion logs the conversion to the local database; failures are
// reported but don't fail the conversion itself.
func recordConversion(cfg *config.Config, log *logger.Logger, inputPath string, source []byte, processed *preprocess.ProcessedVGM) {
	db, err := database.NewDB(database.Config{Path: cfg.Database.Path}, log.WithComponent("database"))
	if err != nil {
		log.Warn("couldn't open conversion log", logger.Error(err))
		return
	}
	defer db.Close()

	var chipNames []string
	for _, c := range chip.Detect(source) {
		chipNames = append(chipNames, c.Kind.String())
	}

	pcmBytes := 0
	for _, block := range processed.Blocks.Blocks {
		pcmBytes += len(block.Data)
	}

	record := &database.Conversion{
		SourcePath:   inputPath,
		Chips:        strings.Join(chipNames, ","),
		CommandBytes: len(processed.Data),
		PCMBlocks:    len(processed.Blocks.Blocks),
		PCMBytes:     pcmBytes,
		RewrotePCM:   true,
	}
	if err := database.NewConversionRepository(db.GetDB()).Create(record); err != nil {
		log.Warn("couldn't record conversion", logger.Error(err))
	}
}
