package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
	"github.com/ironsheep/bubble-sheet-mcp/internal/imaging"
	"github.com/ironsheep/bubble-sheet-mcp/internal/omr"
	"github.com/ironsheep/bubble-sheet-mcp/internal/scoring"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "sheet_process").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// Recognition errors carry their code in the error data.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed", "tool", params.Name, "error", err)
		resp := s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
		if code := omr.CodeOf(err); code != "" {
			resp.Error.Data = map[string]interface{}{"code": string(code), "error": err.Error()}
		}
		return resp
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)

	case "sheet_process":
		return s.handleSheetProcess(args)
	case "sheet_process_batch":
		return s.handleSheetProcessBatch(args)
	case "sheet_detect_markers":
		return s.handleSheetDetectMarkers(args)
	case "sheet_align":
		return s.handleSheetAlign(args)
	case "sheet_grid":
		return s.handleSheetGrid(args)
	case "sheet_overlay":
		return s.handleSheetOverlay(args)
	case "sheet_score":
		return s.handleSheetScore(args)
	case "sheet_read_header":
		return s.handleSheetReadHeader(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{JSONRPC: "2.0", ID: id, Error: e}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments, treating missing arguments as {}.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// errorStrings flattens recovered errors for JSON output.
func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

// === Image Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageEdgeDetectArgs struct {
	Path          string  `json:"path"`
	ThresholdLow  float64 `json:"threshold_low"`
	ThresholdHigh float64 `json:"threshold_high"`
}

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	opts := s.processor.Options()
	if a.ThresholdLow == 0 {
		a.ThresholdLow = opts.CannyLow
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = opts.CannyHigh
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, a.ThresholdLow, a.ThresholdHigh)
}

// === Sheet Handlers ===

// sheetConfigArgs are the recognition settings shared by the sheet tools.
type sheetConfigArgs struct {
	Section1Count   int `json:"section1_count"`
	Section2Count   int `json:"section2_count"`
	Section3Count   int `json:"section3_count"`
	StudentIDDigits int `json:"student_id_digits"`
	Section3Digits  int `json:"section3_digits"`
}

func (s *Server) config(a sheetConfigArgs) omr.Config {
	cfg := omr.Config{
		Section1Count:   a.Section1Count,
		Section2Count:   a.Section2Count,
		Section3Count:   a.Section3Count,
		StudentIDDigits: a.StudentIDDigits,
		Section3Digits:  a.Section3Digits,
	}
	if cfg.StudentIDDigits == 0 {
		cfg.StudentIDDigits = s.defaults.StudentIDDigits
	}
	return cfg
}

type sheetProcessArgs struct {
	Path string `json:"path"`
	sheetConfigArgs
	IncludeBubbles bool `json:"include_bubbles"`
}

type sheetProcessResult struct {
	omr.RecognitionResult
	Method  omr.AlignmentMethod `json:"method,omitempty"`
	Bubbles []omr.ScoredBubble  `json:"bubbles,omitempty"`
}

// process loads path and runs recognition. With artifacts the debug
// processor is used so the result carries diagnostics.
func (s *Server) process(path string, cfg omr.Config, artifacts bool) (*omr.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	if artifacts {
		return s.debug.ProcessSheet(img, cfg)
	}
	return s.processor.ProcessSheet(img, cfg)
}

func (s *Server) handleSheetProcess(args json.RawMessage) (interface{}, error) {
	var a sheetProcessArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	res, err := s.process(a.Path, s.config(a.sheetConfigArgs), a.IncludeBubbles)
	if err != nil {
		return nil, err
	}
	out := sheetProcessResult{RecognitionResult: res.Recognition}
	if res.Diagnostics != nil {
		out.Method = res.Diagnostics.Method
		out.Bubbles = res.Diagnostics.Bubbles
	}
	return out, nil
}

type sheetProcessBatchArgs struct {
	Paths []string `json:"paths"`
	sheetConfigArgs
}

type batchEntry struct {
	Path   string                 `json:"path"`
	Result *omr.RecognitionResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

func (s *Server) handleSheetProcessBatch(args json.RawMessage) (interface{}, error) {
	var a sheetProcessBatchArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths must not be empty")
	}
	cfg := s.config(a.sheetConfigArgs)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	entries := make([]batchEntry, len(a.Paths))
	images := make([]image.Image, len(a.Paths))
	for i, path := range a.Paths {
		entries[i].Path = path
		img, err := s.cache.Load(path)
		if err != nil {
			entries[i].Error = err.Error()
			continue
		}
		images[i] = img
	}

	items, err := s.processor.ProcessBatch(context.Background(), images, cfg, s.workers)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		e := &entries[item.Index]
		if e.Error != "" {
			continue
		}
		if item.Err != nil {
			e.Error = item.Err.Error()
			continue
		}
		rec := item.Result.Recognition
		e.Result = &rec
	}
	// Batch sheets are not kept in the cache.
	for _, path := range a.Paths {
		s.cache.Evict(path)
	}
	return map[string]interface{}{"sheets": entries, "count": len(entries)}, nil
}

type sheetPathArgs struct {
	Path string `json:"path"`
}

type markersResult struct {
	Markers []omr.Marker        `json:"markers"`
	Count   int                 `json:"count"`
	Corners *geometry.Quad      `json:"corners,omitempty"`
	Method  omr.AlignmentMethod `json:"method"`
	Errors  []string            `json:"errors,omitempty"`
}

func (s *Server) handleSheetDetectMarkers(args json.RawMessage) (interface{}, error) {
	var a sheetPathArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	r, err := s.rectify(a.Path)
	if err != nil {
		return nil, err
	}
	out := markersResult{
		Markers: r.Markers,
		Count:   len(r.Markers),
		Method:  r.Method,
		Errors:  errorStrings(r.Errors),
	}
	if out.Markers == nil {
		out.Markers = []omr.Marker{}
	}
	if r.Method == omr.AlignedByMarkers {
		out.Corners = r.Corners
	}
	return out, nil
}

func (s *Server) rectify(path string) (*omr.Rectification, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	return s.processor.Rectify(img)
}

type alignResult struct {
	Method      omr.AlignmentMethod `json:"method"`
	Corners     *geometry.Quad      `json:"corners,omitempty"`
	Frame       geometry.Rect       `json:"frame"`
	Errors      []string            `json:"errors,omitempty"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	ImageBase64 string              `json:"image_base64"`
	MimeType    string              `json:"mime_type"`
}

func (s *Server) handleSheetAlign(args json.RawMessage) (interface{}, error) {
	var a sheetPathArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	r, err := s.rectify(a.Path)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNGBase64(r.Image)
	if err != nil {
		return nil, err
	}
	return alignResult{
		Method:      r.Method,
		Corners:     r.Corners,
		Frame:       r.Frame,
		Errors:      errorStrings(r.Errors),
		Width:       r.Image.Bounds().Dx(),
		Height:      r.Image.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

type sheetGridArgs struct {
	sheetConfigArgs
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *Server) handleSheetGrid(args json.RawMessage) (interface{}, error) {
	var a sheetGridArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	opts := s.processor.Options()
	if a.Width == 0 {
		a.Width = float64(opts.CanonicalWidth)
	}
	if a.Height == 0 {
		a.Height = float64(opts.CanonicalHeight)
	}
	frame, err := geometry.NewRect(0, 0, a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	regions, err := s.processor.Layout().Build(frame, s.config(a.sheetConfigArgs))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"regions": regions, "count": len(regions)}, nil
}

type sheetOverlayArgs struct {
	Path string `json:"path"`
	sheetConfigArgs
	LowColor      string `json:"low_color"`
	HighColor     string `json:"high_color"`
	SelectedColor string `json:"selected_color"`
}

func (s *Server) handleSheetOverlay(args json.RawMessage) (interface{}, error) {
	var a sheetOverlayArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	res, err := s.process(a.Path, s.config(a.sheetConfigArgs), true)
	if err != nil {
		return nil, err
	}
	d := res.Diagnostics
	threshold := s.debug.Options().Threshold
	boxes := make([]imaging.OverlayBox, len(d.Bubbles))
	for i, b := range d.Bubbles {
		boxes[i] = imaging.OverlayBox{
			Rect:       b.Rect,
			Confidence: b.Confidence,
			Selected:   b.Confidence > threshold,
		}
	}
	return imaging.DrawOverlay(d.Rectified, boxes, a.LowColor, a.HighColor, a.SelectedColor)
}

type sheetScoreArgs struct {
	Path string `json:"path"`
	sheetConfigArgs
	Recognition *omr.RecognitionResult `json:"recognition"`
	Key         scoring.AnswerKey      `json:"key"`
}

func (s *Server) handleSheetScore(args json.RawMessage) (interface{}, error) {
	var a sheetScoreArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	rec := a.Recognition
	if rec == nil {
		if a.Path == "" {
			return nil, errors.New("either path or recognition is required")
		}
		cfg := a.sheetConfigArgs
		if cfg.Section1Count+cfg.Section2Count+cfg.Section3Count == 0 {
			cfg.Section1Count = len(a.Key.Section1)
			cfg.Section2Count = len(a.Key.Section2)
			cfg.Section3Count = len(a.Key.Section3)
		}
		res, err := s.process(a.Path, s.config(cfg), false)
		if err != nil {
			return nil, err
		}
		rec = &res.Recognition
	}
	return scoring.Score(*rec, a.Key)
}

type sheetReadHeaderArgs struct {
	Path     string   `json:"path"`
	Keywords []string `json:"keywords"`
}

func (s *Server) handleSheetReadHeader(args json.RawMessage) (interface{}, error) {
	var a sheetReadHeaderArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	r, err := s.rectify(a.Path)
	if err != nil {
		return nil, err
	}
	band := s.processor.Layout().HeaderRegion(r.Frame).Image(r.Image.Bounds())
	v, err := s.reader.VerifyHeader(r.Image, band, a.Keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	return map[string]interface{}{
		"method":       r.Method,
		"language":     s.reader.Language(),
		"verification": v,
	}, nil
}
