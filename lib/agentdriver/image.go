// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentdriver

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ImageMediaType infers an image media type from the file extension.
// Unknown extensions are treated as JPEG, which is what chat clients
// send for camera photos.
func ImageMediaType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// EncodeImage reads the image at path and returns its media type and
// base64-encoded contents.
func EncodeImage(path string) (mediaType, data string, err error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading image %s: %w", path, err)
	}
	return ImageMediaType(path), base64.StdEncoding.EncodeToString(contents), nil
}
