package ai

import (
	"fmt"
	"regexp"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// isGarbageResponse reports replies that are not chat text at all, such as
// an HTML error page served with a 200.
func isGarbageResponse(s string) bool {
	l := strings.ToLower(strings.TrimSpace(s))
	return l == "" || strings.HasPrefix(l, "<!doctype html") || strings.Contains(l, "<html")
}

func truncate(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "..."
	}
	return string(b)
}

// cleanReply drops reasoning blocks and a single pair of wrapping quotes.
func cleanReply(reply string) string {
	reply = strings.TrimSpace(reply)
	reply = thinkBlock.ReplaceAllString(reply, "")
	reply = strings.TrimSpace(reply)

	if len(reply) >= 2 {
		quotes := []struct{ open, close string }{
			{`"`, `"`}, {`'`, `'`}, {"“", "”"}, {"‘", "’"},
		}
		for _, q := range quotes {
			if strings.HasPrefix(reply, q.open) && strings.HasSuffix(reply, q.close) {
				reply = strings.TrimSuffix(strings.TrimPrefix(reply, q.open), q.close)
				reply = strings.TrimSpace(reply)
				break
			}
		}
	}
	return reply
}

// finish cleans a raw backend reply and rejects unusable output.
func finish(provider, raw string) (string, error) {
	reply := cleanReply(raw)
	if reply == "" {
		return "", fmt.Errorf("%s: %w", provider, ErrEmptyReply)
	}
	if isGarbageResponse(reply) {
		return "", fmt.Errorf("%s returned garbage: %w", provider, ErrUnavailable)
	}
	return reply, nil
}
