// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// maxSecretFile bounds what ReadFromPath reads.
const maxSecretFile = 64 * 1024

// ReadFromPath reads a secret from path, or from stdin when path is
// "-". Surrounding whitespace is trimmed; an empty secret is an error.
// The bytes read are zeroed once copied into the Buffer.
func ReadFromPath(path string) (*Buffer, error) {
	var source io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening secret: %w", err)
		}
		defer file.Close()
		source = file
	}

	data, err := io.ReadAll(io.LimitReader(source, maxSecretFile+1))
	defer Zero(data)
	if err != nil {
		return nil, fmt.Errorf("reading secret: %w", err)
	}
	if len(data) > maxSecretFile {
		return nil, fmt.Errorf("secret in %s exceeds %d bytes", path, maxSecretFile)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("secret is empty")
	}
	return NewFromBytes(trimmed)
}
