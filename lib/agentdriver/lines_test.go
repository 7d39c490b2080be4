// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentdriver

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"
)

func TestReadLinesReassemblesFragments(t *testing.T) {
	t.Parallel()

	// OneByteReader forces every line to arrive split across reads.
	reader := iotest.OneByteReader(strings.NewReader("first\nsecond line\r\n\nthird"))

	var lines []string
	if err := ReadLines(reader, func(line []byte) { lines = append(lines, string(line)) }); err != nil {
		t.Fatalf("ReadLines: %v", err)
	}

	want := []string{"first", "second line", "third"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines %q, want %q", len(lines), lines, want)
	}
	for index := range want {
		if lines[index] != want[index] {
			t.Errorf("line[%d] = %q, want %q", index, lines[index], want[index])
		}
	}
}

func TestReadLinesLongLine(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 3*1024*1024)
	var got int
	if err := ReadLines(strings.NewReader(long+"\n"), func(line []byte) { got = len(line) }); err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	if got != len(long) {
		t.Errorf("line length = %d, want %d", got, len(long))
	}
}

func TestReadJSONLinesSkipsMalformed(t *testing.T) {
	t.Parallel()

	input := `{"type":"a"}
not json at all
{"type":"b"}
{"type":
{"type":"c"}
`
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var types []string
	err := ReadJSONLines(strings.NewReader(input), logger, func(record struct {
		Type string `json:"type"`
	}) {
		types = append(types, record.Type)
	})
	if err != nil {
		t.Fatalf("ReadJSONLines: %v", err)
	}
	if strings.Join(types, ",") != "a,b,c" {
		t.Errorf("types = %v, want [a b c]", types)
	}
}
