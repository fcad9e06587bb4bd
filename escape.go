package stomp

import "strings"

// escapePair mirrors the codecValues table wjmboss-stompngo builds for
// its own (decoded, encoded) substitution list, adapted per negotiated
// version instead of a single fixed table: 1.0 has no escaping, 1.1
// escapes \\, \n and \c, 1.2 additionally escapes \r.
type escapePair struct {
	decoded string
	encoded string
}

// escapeTable returns the substitution pairs for version, most
// specific escape sequence first so Replacer matches greedily correct.
func escapeTable(v Version) []escapePair {
	switch v {
	case V11:
		return []escapePair{
			{"\\", "\\\\"},
			{"\n", "\\n"},
			{":", "\\c"},
		}
	case V12:
		return []escapePair{
			{"\\", "\\\\"},
			{"\n", "\\n"},
			{":", "\\c"},
			{"\r", "\\r"},
		}
	default: // V10: no escaping
		return nil
	}
}

// EscapeHeader encodes a header name or value for the wire under the
// given version. The command line and body are never escaped (§4.3).
func EscapeHeader(v Version, s string) string {
	table := escapeTable(v)
	if table == nil {
		return s
	}
	pairs := make([]string, 0, 2*len(table))
	for _, p := range table {
		pairs = append(pairs, p.decoded, p.encoded)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// UnescapeHeader decodes a header name or value read off the wire
// under the given version. Escaping is an involution (§8 invariant
// 3): UnescapeHeader(v, EscapeHeader(v, s)) == s for every version.
//
// 1.0 performs no escaping at all, so any backslash is passed through
// literally. 1.1/1.2 reject a backslash not followed by one of the
// recognized escape letters, and both reject a raw CR byte — the
// spec's conservative reading of the ambiguous CR-tolerance question
// (see DESIGN.md). The \r escape itself is accepted only under 1.2.
func UnescapeHeader(v Version, s string) (string, error) {
	if v == V10 {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\r' {
			return "", newError(MalformedFrame, "unescaped CR in header under STOMP %s", v)
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			return "", newError(MalformedFrame, "trailing backslash in header under STOMP %s", v)
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteByte(':')
		case '\\':
			b.WriteByte('\\')
		case 'r':
			if v != V12 {
				return "", newError(MalformedFrame, "\\r escape not valid under STOMP %s", v)
			}
			b.WriteByte('\r')
		default:
			return "", newError(MalformedFrame, "invalid escape sequence \\%c under STOMP %s", s[i], v)
		}
	}
	return b.String(), nil
}
