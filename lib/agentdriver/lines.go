// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentdriver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
)

// ReadLines reads newline-delimited records from reader and calls
// handle once per non-empty line, without the trailing newline. Bytes
// are buffered until a full line is available, so a record split across
// reads is delivered whole. There is no maximum line length: tool
// results embedding whole files produce multi-megabyte lines.
//
// A trailing fragment without a newline is delivered at EOF. The slice
// passed to handle is only valid for the duration of the call.
func ReadLines(reader io.Reader, handle func(line []byte)) error {
	buffered := bufio.NewReaderSize(reader, 64*1024)
	for {
		line, err := buffered.ReadBytes('\n')
		line = bytes.TrimRight(line, "\r\n")
		if len(line) > 0 {
			handle(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// ReadJSONLines is ReadLines for streams of JSON objects. Each line is
// unmarshaled into a fresh T and passed to handle; a line that fails to
// parse is logged and skipped without aborting the stream.
func ReadJSONLines[T any](reader io.Reader, logger *slog.Logger, handle func(record T)) error {
	return ReadLines(reader, func(line []byte) {
		var record T
		if err := json.Unmarshal(line, &record); err != nil {
			logger.Warn("skipping malformed output line",
				"error", err,
				"line", truncateForLog(line),
			)
			return
		}
		handle(record)
	})
}

func truncateForLog(line []byte) string {
	const limit = 200
	if len(line) <= limit {
		return string(line)
	}
	return string(line[:limit]) + "..."
}
