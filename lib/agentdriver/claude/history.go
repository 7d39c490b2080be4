// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package claude

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bureau-foundation/handset/lib/agentdriver"
)

// ProjectDirName returns the directory name Claude Code uses for a
// working directory under its projects root: every character outside
// [A-Za-z0-9] becomes '-'.
func ProjectDirName(cwd string) string {
	var builder strings.Builder
	builder.Grow(len(cwd))
	for _, r := range cwd {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		default:
			builder.WriteByte('-')
		}
	}
	return builder.String()
}

// LastSummary returns the last summary recorded in the most recently
// modified non-empty session log for cwd under projectsDir. found is
// false when there is no log or no log carries a summary; a missing
// projects directory is not an error.
func LastSummary(projectsDir, cwd string) (summary string, found bool, err error) {
	directory := filepath.Join(projectsDir, ProjectDirName(cwd))
	entries, err := os.ReadDir(directory)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("listing session logs: %w", err)
	}

	type candidate struct {
		path    string
		modTime int64
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jsonl" {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(directory, entry.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}
	if len(candidates) == 0 {
		return "", false, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime > candidates[j].modTime
	})

	file, err := os.Open(candidates[0].path)
	if err != nil {
		return "", false, fmt.Errorf("opening session log: %w", err)
	}
	defer file.Close()

	err = agentdriver.ReadLines(file, func(line []byte) {
		var record struct {
			Summary string `json:"summary"`
		}
		if json.Unmarshal(line, &record) != nil || record.Summary == "" {
			return
		}
		summary = record.Summary
		found = true
	})
	if err != nil {
		return "", false, fmt.Errorf("reading session log: %w", err)
	}
	return summary, found, nil
}
