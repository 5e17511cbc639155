// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export converts chat histories to downloadable formats.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/questrun/internal/history"
	"github.com/jeranaias/questrun/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for history exporters.
type Exporter interface {
	// Export converts a history to the target format and returns the content.
	Export(h *history.History) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ErrNothingToExport is returned when the namespace holds no histories.
var ErrNothingToExport = fmt.Errorf("nothing to export")

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// IncludeMetadata includes a metadata header (timestamps, counts).
	IncludeMetadata bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportOne exports a single history from a namespace to a file.
// Returns the output file path.
func ExportOne(store *history.Store, namespace, id string, exporter Exporter, opts *Options) (string, error) {
	h, err := store.Get(namespace, id)
	if err != nil {
		return "", err
	}
	return writeExport(h, exporter, opts)
}

// ExportAll exports every history in a namespace, one file each.
// Returns the output file paths, or ErrNothingToExport for an empty
// namespace.
func ExportAll(store *history.Store, namespace string, exporter Exporter, opts *Options) ([]string, error) {
	list, err := store.List(namespace)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNothingToExport
	}

	paths := make([]string, 0, len(list))
	for i := range list {
		path, err := writeExport(&list[i], exporter, opts)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// writeExport renders one history and writes it under opts.OutputDir.
func writeExport(h *history.History, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(h)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(opts.OutputDir, Filename(h, exporter.FileExtension()))
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return outputPath, nil
}

// Filename derives an export filename from a history's title, falling
// back to its ID, stamped with the export time.
func Filename(h *history.History, ext string) string {
	base := sanitizeFilename(h.Title)
	if base == "" || base == "history" {
		if h.ID != "" {
			base = h.ID
		} else {
			base = time.Now().Format("20060102")
		}
	}
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("history_%s_%s%s", base, timestamp, ext)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.TruncateRunesNoEllipsis(s, 50)

	// Replace problematic characters (Windows and Unix)
	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			// Replace control characters
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "history"
	}

	return string(result)
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
