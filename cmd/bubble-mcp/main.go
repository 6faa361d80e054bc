package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/bubble-sheet-mcp/internal/config"
	"github.com/ironsheep/bubble-sheet-mcp/internal/logging"
	"github.com/ironsheep/bubble-sheet-mcp/internal/ocr"
	"github.com/ironsheep/bubble-sheet-mcp/internal/omr"
	"github.com/ironsheep/bubble-sheet-mcp/internal/server"
	"github.com/ironsheep/bubble-sheet-mcp/internal/vision"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("bubble-sheet-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			fmt.Printf("  Backends:   %v\n", vision.Available())
			return
		case "--help", "-h", "help":
			fmt.Println("bubble-sheet-mcp - MCP server for bubble answer sheet recognition")
			fmt.Println()
			fmt.Println("Usage: bubble-sheet-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from ./.env):")
			fmt.Println("  BUBBLE_MCP_LOG_LEVEL=info           debug, info, warn, error")
			fmt.Println("  BUBBLE_MCP_BACKEND=native           native or opencv (needs -tags gocv)")
			fmt.Println("  BUBBLE_MCP_THRESHOLD=0.4            fill confidence threshold")
			fmt.Println("  BUBBLE_MCP_CANONICAL_WIDTH=700      rectified sheet width")
			fmt.Println("  BUBBLE_MCP_CANONICAL_HEIGHT=700     rectified sheet height")
			fmt.Println("  BUBBLE_MCP_MAX_INPUT_DIM=2000       down-scale larger captures")
			fmt.Println("  BUBBLE_MCP_STUDENT_ID_DIGITS=6      default student ID length")
			fmt.Println("  BUBBLE_MCP_OCR_LANG=vie             Tesseract language for headers")
			fmt.Println("  BUBBLE_MCP_TESSDATA=                Tesseract training data directory")
			fmt.Println("  BUBBLE_MCP_BATCH_WORKERS=4          concurrent sheets per batch")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			return
		}
	}

	// stdout is reserved for the MCP protocol.
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := logging.NewStderr("bubble-mcp", logging.ParseLevel(cfg.LogLevel))
	logger.Info("starting", "version", Version, "commit", GitCommit, "backend", cfg.Backend)

	backend, err := vision.New(cfg.Backend)
	if err != nil {
		log.Fatalf("Backend error: %v (available: %v)", err, vision.Available())
	}

	opts := omr.DefaultOptions()
	opts.Threshold = cfg.Threshold
	opts.CanonicalWidth = cfg.CanonicalWidth
	opts.CanonicalHeight = cfg.CanonicalHeight
	opts.MaxInputDimension = cfg.MaxInputDimension

	srv := server.New(server.Options{
		Processor:       omr.NewProcessor(backend, opts, logger.With("omr")),
		Reader:          ocr.NewReader(cfg.OCRLanguage, cfg.TessdataPrefix),
		StudentIDDigits: cfg.StudentIDDigits,
		BatchWorkers:    cfg.BatchWorkers,
		Logger:          logger.With("server"),
	})
	if err := srv.Run(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
