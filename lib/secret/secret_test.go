// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewIsZeroFilled(t *testing.T) {
	t.Parallel()

	buffer, err := New(32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != 32 {
		t.Errorf("Len = %d, want 32", buffer.Len())
	}
	if !bytes.Equal(buffer.Bytes(), make([]byte, 32)) {
		t.Error("fresh buffer is not zero-filled")
	}
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf("New(%d) succeeded, want error", size)
		}
	}
}

func TestNewFromBytesZeroesSource(t *testing.T) {
	t.Parallel()

	source := []byte("123456:bot-token")
	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if buffer.String() != "123456:bot-token" {
		t.Errorf("String = %q", buffer.String())
	}
	if !bytes.Equal(source, make([]byte, len(source))) {
		t.Errorf("source = %q, want zeroed", source)
	}
	if _, err := NewFromBytes(nil); err == nil {
		t.Error("NewFromBytes(nil) succeeded, want error")
	}
}

func TestCloseIsIdempotentAndBlocksReads(t *testing.T) {
	t.Parallel()

	buffer, err := NewFromBytes([]byte("token"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if buffer.Len() != 0 {
		t.Errorf("Len after Close = %d", buffer.Len())
	}

	defer func() {
		if recover() == nil {
			t.Error("String after Close did not panic")
		}
	}()
	_ = buffer.String()
}

func TestReadFromPath(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
		wantErr string
	}{
		{name: "plain", content: "token", want: "token"},
		{name: "trailing newline", content: "token\n", want: "token"},
		{name: "surrounding whitespace", content: "  token \n\n", want: "token"},
		{name: "empty", content: "", wantErr: "empty"},
		{name: "whitespace only", content: " \n\t", wantErr: "empty"},
		{name: "too large", content: strings.Repeat("x", maxSecretFile+1), wantErr: "exceeds"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(directory, strings.ReplaceAll(test.name, " ", "-"))
			if err := os.WriteFile(path, []byte(test.content), 0o600); err != nil {
				t.Fatal(err)
			}
			buffer, err := ReadFromPath(path)
			if test.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), test.wantErr) {
					t.Fatalf("err = %v, want it to mention %q", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadFromPath: %v", err)
			}
			defer buffer.Close()
			if buffer.String() != test.want {
				t.Errorf("secret = %q, want %q", buffer.String(), test.want)
			}
		})
	}
}

func TestReadFromPathMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := ReadFromPath(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("ReadFromPath on a missing file succeeded")
	}
}
