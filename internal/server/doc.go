// Package server implements the MCP (Model Context Protocol) server for
// bubble answer sheet recognition.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Images:
//   - image_load: Load image and get metadata
//   - image_edge_detect: Edge map used by sheet-outline alignment
//
// Recognition:
//   - sheet_process: Read student ID and answers from one sheet
//   - sheet_process_batch: Read several sheets concurrently
//   - sheet_score: Grade a sheet or a recognition result against a key
//
// Diagnostics:
//   - sheet_detect_markers: Reference markers and the corners used
//   - sheet_align: Rectified sheet image
//   - sheet_grid: Bubble regions of the template
//   - sheet_overlay: Bubbles drawn over the rectified sheet
//   - sheet_read_header: OCR check of the printed header
//
// # Image Caching
//
// Images are cached by path and reused across tool calls. Batch calls evict
// their sheets when done.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000. Recognition errors put {"code": "CONFIGURATION" | "DECODE", "error":
// "..."} in the error data; other failures carry the error string.
package server
