// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the handset configuration file.
//
// The file is named by the --config flag ([LoadFile]) or the
// HANDSET_CONFIG environment variable ([Load]). There is no search
// path and no per-field environment override: the file is the single
// source of truth, with ${VAR} and ${VAR:-default} expanded in string
// fields so the bot token can stay out of it.
//
// YAML is the native format. Files ending in .json or .jsonc are
// accepted too, with comments and trailing commas stripped before
// decoding.
//
// [Config.Validate] reports every problem at once. [Config.TakeToken]
// moves the bot token into a [secret.Buffer] and clears the string
// copy.
package config
