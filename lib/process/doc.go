// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the binary entrypoint's last-resort error
// path: reporting an error from run() to stderr when the structured
// logger may not exist yet, and exiting.
package process
