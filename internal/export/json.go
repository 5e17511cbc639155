// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"

	"github.com/jeranaias/questrun/internal/history"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports histories to JSON format.
// NOTE: JSON exports always include the complete record so the output is a
// faithful representation that can be re-imported.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter. The options parameter is
// accepted for consistency with other exporters; JSON exports always
// include complete data.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a history to JSON format.
func (e *JSONExporter) Export(h *history.History) ([]byte, error) {
	if h == nil {
		return nil, fmt.Errorf("history is nil")
	}
	return json.MarshalIndent(h, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
