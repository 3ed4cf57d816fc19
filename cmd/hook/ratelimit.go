package main

import (
	"bufio"
	"os"
	"strings"
)

// rateLimitKeywords mark transcript lines written when the upstream API
// rejected a request for capacity reasons.
var rateLimitKeywords = []string{
	"rate limit", "rate_limit", "too many requests",
	"429", "quota exceeded", "overloaded",
}

const rateLimitTailLines = 3

// detectRateLimit scans the last few transcript records for rate-limit
// markers and returns the first matching keyword. Read errors report no
// match; a missing transcript is not the producer's problem.
func detectRateLimit(transcriptPath string) (string, bool) {
	tail, err := lastLines(transcriptPath, rateLimitTailLines)
	if err != nil {
		return "", false
	}
	for _, line := range tail {
		lowered := strings.ToLower(line)
		for _, keyword := range rateLimitKeywords {
			if strings.Contains(lowered, keyword) {
				return keyword, true
			}
		}
	}
	return "", false
}

// lastLines returns up to n trailing lines of a file.
func lastLines(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var tail []string
	scanner := bufio.NewScanner(file)
	// Transcript records are JSONL and can exceed the default token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		tail = append(tail, scanner.Text())
		if len(tail) > n {
			tail = tail[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tail, nil
}
