package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// BodyText extracts a single best-effort text representation from a nested
// MIME payload. It walks the part tree depth-first with an explicit
// preference order:
//
//  1. a leaf part returns its decoded payload (or "" when it has none)
//  2. the first child whose MIME type starts with text/plain wins
//  3. otherwise the first child starting with text/html wins
//  4. otherwise children are tried in order and the first non-empty
//     result anywhere in a subtree wins
//
// MIME type matching is a case-insensitive prefix match, so parameters like
// "text/plain; charset=UTF-8" are covered. A part whose payload fails to
// decode contributes the empty string and the walk moves on to the next
// candidate branch. BodyText never fails; total absence of decodable
// content yields "".
func BodyText(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}

	if len(part.Parts) == 0 {
		if part.Body != nil && part.Body.Data != "" {
			text, err := decodeURLSafeBase64(part.Body.Data)
			if err != nil {
				return ""
			}
			return text
		}
		return ""
	}

	for _, p := range part.Parts {
		if hasMimePrefix(p, "text/plain") {
			return BodyText(p)
		}
	}

	for _, p := range part.Parts {
		if hasMimePrefix(p, "text/html") {
			return BodyText(p)
		}
	}

	for _, p := range part.Parts {
		if text := BodyText(p); text != "" {
			return text
		}
	}

	return ""
}

// hasMimePrefix reports whether the part's MIME type starts with the given
// lowercase prefix, ignoring case and any parameters after the type.
func hasMimePrefix(p *gmail.MessagePart, prefix string) bool {
	return p != nil && strings.HasPrefix(strings.ToLower(p.MimeType), prefix)
}

// decodeURLSafeBase64 decodes the URL-safe base64 variant the Gmail API uses
// for body payloads: '-' and '_' in place of '+' and '/', padding stripped.
// Padding is restored from the length mod 4 (2 -> "==", 3 -> "="); a length
// of 1 mod 4 is invalid under any padding scheme and is reported as a decode
// failure. Empty input decodes to the empty string.
func decodeURLSafeBase64(input string) (string, error) {
	if input == "" {
		return "", nil
	}

	fixed := strings.ReplaceAll(input, "-", "+")
	fixed = strings.ReplaceAll(fixed, "_", "/")

	switch len(fixed) % 4 {
	case 2:
		fixed += "=="
	case 3:
		fixed += "="
	}

	b, err := base64.StdEncoding.DecodeString(fixed)
	if err != nil {
		return "", fmt.Errorf("malformed base64url payload: %w", err)
	}
	return string(b), nil
}
