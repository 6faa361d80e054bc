package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ironsheep/bubble-sheet-mcp/internal/imaging"
	"github.com/ironsheep/bubble-sheet-mcp/internal/logging"
	"github.com/ironsheep/bubble-sheet-mcp/internal/ocr"
	"github.com/ironsheep/bubble-sheet-mcp/internal/omr"
	"github.com/ironsheep/bubble-sheet-mcp/internal/vision"
)

// Name and Version are reported in the initialize handshake.
const (
	Name    = "bubble-sheet-mcp"
	Version = "0.1.0"
)

// Server handles MCP protocol communication
type Server struct {
	cache     *imaging.ImageCache
	processor *omr.Processor
	debug     *omr.Processor
	reader    *ocr.Reader
	defaults  omr.Config
	workers   int
	log       *logging.Logger
}

// Options configure a Server. Zero values select defaults.
type Options struct {
	// Processor runs recognition. Defaults to the native backend with
	// omr.DefaultOptions.
	Processor *omr.Processor

	// Reader reads sheet headers. Defaults to English with system tessdata.
	Reader *ocr.Reader

	// StudentIDDigits is used when a call does not give one.
	StudentIDDigits int

	// BatchWorkers bounds concurrent sheets in sheet_process_batch.
	BatchWorkers int

	Logger *logging.Logger
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	proc := opts.Processor
	if proc == nil {
		proc = omr.NewProcessor(vision.NewNative(), omr.DefaultOptions(), log.With("omr"))
	}
	debugOpts := proc.Options()
	debugOpts.KeepArtifacts = true

	reader := opts.Reader
	if reader == nil {
		reader = ocr.NewReader("eng", "")
	}
	workers := opts.BatchWorkers
	if workers < 1 {
		workers = 1
	}
	return &Server{
		cache:     imaging.NewImageCacheWithDecoder(omr.DecodeImage),
		processor: proc,
		debug:     omr.NewProcessor(proc.Backend(), debugOpts, log.With("omr")),
		reader:    reader,
		defaults:  omr.Config{StudentIDDigits: opts.StudentIDDigits},
		workers:   workers,
		log:       log,
	}
}

// Run serves requests from stdin until it is closed, writing responses to
// stdout.
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from r and writes responses to w.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warn("failed to parse request", "error", err)
			if err := encoder.Encode(s.errorResponse(nil, -32700, "Parse error", err.Error())); err != nil {
				s.log.Error("failed to encode response", "error", err)
			}
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.Error("failed to encode response", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.log.Debug("request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return s.errorResponse(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method), "")
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    Name,
				"version": Version,
				"backend": s.processor.Backend().Name(),
			},
		},
	}
}
