package carrier

import (
	"fmt"
	"strings"

	"github.com/emiago/sipgo/sip"
)

// NormalizeTarget turns a configured or user-entered deflect/transfer target
// into the number handed to the carrier. Accepted forms are plain dial strings
// ("+1 (555) 010-2000"), tel: URIs and sip:/sips: URIs. For SIP URIs with a
// dialable user part the user part is returned; otherwise the URI is returned
// in canonical form.
func NormalizeTarget(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrMissingTarget
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "sip:"), strings.HasPrefix(lower, "sips:"):
		var uri sip.Uri
		if err := sip.ParseUri(s, &uri); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
		}
		if uri.Host == "" {
			return "", fmt.Errorf("%w: %q has no host", ErrInvalidTarget, raw)
		}
		if n, ok := dialString(uri.User); ok {
			return n, nil
		}
		if uri.User == "" {
			return "", fmt.Errorf("%w: %q has no user part", ErrInvalidTarget, raw)
		}
		return uri.String(), nil
	case strings.HasPrefix(lower, "tel:"):
		s = s[len("tel:"):]
		if i := strings.IndexByte(s, ';'); i >= 0 {
			s = s[:i]
		}
	}

	n, ok := dialString(s)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, raw)
	}
	return n, nil
}

// dialString strips visual separators and checks the remainder is dialable.
func dialString(s string) (string, bool) {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '*', r == '#':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.', r == '(', r == ')':
		default:
			return "", false
		}
	}
	out := b.String()
	if out == "" || out == "+" {
		return "", false
	}
	return out, true
}
