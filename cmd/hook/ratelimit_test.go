package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestDetectRateLimit(t *testing.T) {
	path := writeTranscript(t,
		`{"role":"user","content":"hello"}`,
		`{"role":"assistant","content":"working on it"}`,
		`{"error":"429 Too Many Requests"}`,
	)

	keyword, found := detectRateLimit(path)
	require.True(t, found)
	require.Equal(t, "too many requests", keyword)
}

func TestDetectRateLimitOnlyScansTail(t *testing.T) {
	path := writeTranscript(t,
		`{"error":"rate limit exceeded"}`,
		`{"role":"assistant","content":"recovered"}`,
		`{"role":"assistant","content":"still going"}`,
		`{"role":"assistant","content":"done"}`,
	)

	_, found := detectRateLimit(path)
	require.False(t, found, "old markers outside the tail window are ignored")
}

func TestDetectRateLimitCaseInsensitive(t *testing.T) {
	path := writeTranscript(t, `{"error":"Quota Exceeded for this billing period"}`)

	keyword, found := detectRateLimit(path)
	require.True(t, found)
	require.Equal(t, "quota exceeded", keyword)
}

func TestDetectRateLimitMissingFile(t *testing.T) {
	_, found := detectRateLimit(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.False(t, found)
}

func TestDetectRateLimitCleanTranscript(t *testing.T) {
	path := writeTranscript(t,
		`{"role":"assistant","content":"all tests pass"}`,
		`{"role":"assistant","content":"shipping"}`,
	)

	_, found := detectRateLimit(path)
	require.False(t, found)
}
