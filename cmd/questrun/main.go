// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"github.com/joho/godotenv"

	"github.com/jeranaias/questrun/cmd/questrun/root"
)

func main() {
	// Best-effort: a missing .env is fine, the config layer has defaults.
	_ = godotenv.Load()

	root.Execute()
}
