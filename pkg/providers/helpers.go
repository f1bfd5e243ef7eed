package providers

import (
	"encoding/json"
	"net/url"
	"strings"
	"unicode/utf8"
)

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// ProfileURL is the public LinkedIn URL for username.
func ProfileURL(username string) string {
	return "https://www.linkedin.com/in/" + url.PathEscape(username)
}

// correctUsernameEncoding repairs a UTF-8 username that was decoded as latin-1
// upstream. Usernames that do not round-trip are returned unchanged.
func correctUsernameEncoding(username string) string {
	b := make([]byte, 0, len(username))
	for _, r := range username {
		if r > 0xFF {
			return username
		}
		b = append(b, byte(r))
	}
	if !utf8.Valid(b) {
		return username
	}
	return string(b)
}

func decodeObject(body []byte) (Payload, error) {
	var out Payload
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// toPayload renders a typed document into the generic payload shape.
func toPayload(v any) (Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decodeObject(raw)
}

func stringField(p Payload, key string) string {
	s, _ := p[key].(string)
	return strings.TrimSpace(s)
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
