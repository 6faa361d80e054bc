package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// withSheetConfig adds the recognition settings to a property set.
func withSheetConfig(props map[string]interface{}) map[string]interface{} {
	props["section1_count"] = map[string]interface{}{
		"type":        "integer",
		"description": "Number of multiple-choice (A-D) questions, 0-40",
		"minimum":     0,
		"maximum":     40,
	}
	props["section2_count"] = map[string]interface{}{
		"type":        "integer",
		"description": "Number of true/false questions with sub-answers a-d, 0-8",
		"minimum":     0,
		"maximum":     8,
	}
	props["section3_count"] = map[string]interface{}{
		"type":        "integer",
		"description": "Number of numeric-answer questions, 0-6",
		"minimum":     0,
		"maximum":     6,
	}
	props["student_id_digits"] = map[string]interface{}{
		"type":        "integer",
		"description": "Student ID length (default from server configuration, max 10)",
		"minimum":     0,
		"maximum":     10,
	}
	props["section3_digits"] = map[string]interface{}{
		"type":        "integer",
		"description": "Character columns per numeric answer (default 4, max 8)",
		"minimum":     0,
		"maximum":     8,
	}
	return props
}

func answerKeySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Expected answers",
		"properties": map[string]interface{}{
			"section1": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string", "enum": []string{"A", "B", "C", "D"}},
			},
			"section2": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"a": map[string]interface{}{"type": "boolean"},
						"b": map[string]interface{}{"type": "boolean"},
						"c": map[string]interface{}{"type": "boolean"},
						"d": map[string]interface{}{"type": "boolean"},
					},
				},
			},
			"section3": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Images
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded image is cached for later sheet tools.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_edge_detect",
			Description: "Run the sheet-boundary edge detector (blur + Canny) and return the edge map as base64 PNG. Useful when alignment falls back to the contour or degraded path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"threshold_low": map[string]interface{}{
						"type":        "number",
						"description": "Low hysteresis threshold (default 10)",
						"default":     10,
					},
					"threshold_high": map[string]interface{}{
						"type":        "number",
						"description": "High hysteresis threshold (default 70)",
						"default":     70,
					},
				},
				"required": []string{"path"},
			},
		},

		// Recognition
		{
			Name:        "sheet_process",
			Description: "Recognise a bubble answer sheet: student ID, multiple-choice (section 1), true/false (section 2) and numeric (section 3) answers, with an overall confidence.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSheetConfig(map[string]interface{}{
					"path": pathProperty(),
					"include_bubbles": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return every bubble with its fill confidence",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "sheet_process_batch",
			Description: "Recognise several answer sheets with the same settings. Results are returned in input order; a sheet that fails reports its own error.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSheetConfig(map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths to the sheet images",
					},
				}),
				"required": []string{"paths"},
			},
		},
		{
			Name:        "sheet_score",
			Description: "Grade a sheet against an answer key. Pass either an image path (recognised first) or a previous recognition result.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSheetConfig(map[string]interface{}{
					"path": pathProperty(),
					"recognition": map[string]interface{}{
						"type":        "object",
						"description": "Output of sheet_process, used instead of path",
					},
					"key": answerKeySchema(),
				}),
				"required": []string{"key"},
			},
		},

		// Diagnostics
		{
			Name:        "sheet_detect_markers",
			Description: "Detect the black reference markers of an answer sheet and report which corner markers were used for alignment.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sheet_align",
			Description: "Locate the sheet and return the rectified grayscale image as base64 PNG, with the alignment method and corners.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sheet_grid",
			Description: "List every bubble region of the template for the given settings, in rectified-image coordinates.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSheetConfig(map[string]interface{}{
					"width": map[string]interface{}{
						"type":        "number",
						"description": "Frame width (default canonical width 700)",
					},
					"height": map[string]interface{}{
						"type":        "number",
						"description": "Frame height (default canonical height 700)",
					},
				}),
			},
		},
		{
			Name:        "sheet_overlay",
			Description: "Draw every bubble on the rectified sheet, coloured by fill confidence, with selected bubbles highlighted. Returns base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSheetConfig(map[string]interface{}{
					"path": pathProperty(),
					"low_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex colour for empty bubbles (default #3A7BD5)",
					},
					"high_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex colour for fully dark bubbles (default #F5A623)",
					},
					"selected_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex colour for bubbles above the threshold (default #D0021B)",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "sheet_read_header",
			Description: "OCR the printed header band of the sheet and check it for expected keywords (default: PHIẾU TRẢ LỜI, TRẮC NGHIỆM).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"keywords": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Keywords that must appear in the header",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
