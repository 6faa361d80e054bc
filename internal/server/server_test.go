package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ironsheep/bubble-sheet-mcp/internal/omr"
	"github.com/ironsheep/bubble-sheet-mcp/internal/vision"
)

func newTestServer() *Server {
	opts := omr.DefaultOptions()
	return New(Options{
		Processor:       omr.NewProcessor(vision.NewNative(), opts, nil),
		StudentIDDigits: 6,
		BatchWorkers:    2,
	})
}

func TestNew(t *testing.T) {
	s := New(Options{})
	if s.cache == nil || s.processor == nil || s.debug == nil || s.reader == nil {
		t.Fatal("New() left a dependency nil")
	}
	if s.workers != 1 {
		t.Errorf("workers = %d, want 1", s.workers)
	}
	if !s.debug.Options().KeepArtifacts {
		t.Error("debug processor should keep artifacts")
	}
	if s.processor.Options().KeepArtifacts {
		t.Error("default processor should not keep artifacts")
	}
}

func TestMCPRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantID     interface{}
		wantMethod string
	}{
		{"string id", `{"jsonrpc":"2.0","id":"test-1","method":"tools/list"}`, "test-1", "tools/list"},
		{"number id", `{"jsonrpc":"2.0","id":42,"method":"ping"}`, float64(42), "ping"},
		{"null id", `{"jsonrpc":"2.0","id":null,"method":"initialize"}`, nil, "initialize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MCPRequest
			if err := json.Unmarshal([]byte(tt.json), &req); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}
			if req.ID != tt.wantID {
				t.Errorf("ID: got %v (%T), want %v (%T)", req.ID, req.ID, tt.wantID, tt.wantID)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("Method: got %s, want %s", req.Method, tt.wantMethod)
			}
		})
	}
}

func TestHandleRequest_Routing(t *testing.T) {
	s := newTestServer()
	tests := []struct {
		method    string
		wantNil   bool
		wantError int
	}{
		{"initialize", false, 0},
		{"notifications/initialized", true, 0},
		{"tools/list", false, 0},
		{"ping", false, 0},
		{"nonexistent/method", false, -32601},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: tt.method})
			if tt.wantNil {
				if resp != nil {
					t.Error("expected no response")
				}
				return
			}
			if resp == nil {
				t.Fatal("handleRequest returned nil")
			}
			if tt.wantError == 0 && resp.Error != nil {
				t.Fatalf("Unexpected error: %+v", resp.Error)
			}
			if tt.wantError != 0 && (resp.Error == nil || resp.Error.Code != tt.wantError) {
				t.Errorf("Error: got %+v, want code %d", resp.Error, tt.wantError)
			}
		})
	}
}

func TestHandleInitialize(t *testing.T) {
	s := newTestServer()
	resp := s.handleInitialize(&MCPRequest{JSONRPC: "2.0", ID: "init-1"})

	if resp.ID != "init-1" {
		t.Errorf("ID: got %v, want init-1", resp.ID)
	}
	result := resp.Result.(map[string]interface{})
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]interface{})
	if info["name"] != Name || info["version"] != Version {
		t.Errorf("serverInfo: got %v", info)
	}
	if info["backend"] != vision.NativeName {
		t.Errorf("serverInfo.backend: got %v", info["backend"])
	}
}

func TestServe(t *testing.T) {
	s := newTestServer()
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	}, "\n")

	var out bytes.Buffer
	if err := s.Serve(strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	var responses []MCPResponse
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp MCPResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response line %q: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}

	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3 (initialize, parse error, ping)", len(responses))
	}
	if responses[0].ID != float64(1) || responses[0].Error != nil {
		t.Errorf("initialize response: %+v", responses[0])
	}
	if responses[1].Error == nil || responses[1].Error.Code != -32700 {
		t.Errorf("expected parse error, got %+v", responses[1])
	}
	if responses[2].ID != float64(2) {
		t.Errorf("ping response ID: %v", responses[2].ID)
	}
}

func TestErrorResponse_OmitsEmptyData(t *testing.T) {
	s := newTestServer()
	data, err := json.Marshal(s.errorResponse(1, -32601, "Method not found", ""))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"data"`) {
		t.Errorf("empty data should be omitted: %s", data)
	}
}
