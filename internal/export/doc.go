// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export converts chat histories to downloadable formats.
//
// Two exporters are provided: JSON (a faithful, re-importable dump of the
// stored record) and Markdown (a readable transcript with optional
// metadata frontmatter). ExportOne and ExportAll resolve histories
// through the history store by namespace, so the HTTP layer and the CLI
// share one code path.
package export
