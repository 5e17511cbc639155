// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the persistent local user identity.
//
// The identity is a single opaque string of the form
// user_<millis>_<fragment>, minted on first use and stored in the data
// directory. Chat histories are namespaced by this ID, so resetting the
// session starts an empty history view while leaving old namespaces on
// disk for housekeeping to prune.
package session
