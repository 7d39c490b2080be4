// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version of the handset binary.
//
// Release builds inject [Version] and [GitCommit] with -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/handset/lib/version.Version=1.2.0 \
//	  -X github.com/bureau-foundation/handset/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Without them, the commit is taken from the VCS stamp the Go toolchain
// embeds in module builds.
package version
