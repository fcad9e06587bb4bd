package stomp

import (
	"strconv"
	"strings"
)

// framesWithAutoContentLength are the commands that always carry a
// content-length header on the wire, even with an empty body (§4.1).
// Any other command gets one only when its body is non-empty.
var framesWithAutoContentLength = map[string]bool{
	CmdSend:    true,
	CmdMessage: true,
	CmdError:   true,
}

// Marshal serializes f to STOMP wire format under version, following
// the same layout djoyahoy-stomp's Encoder writes: command, LF, each
// header, a blank LF, the body, then NUL. Unlike the teacher's
// encoder, header values are escaped per version and a missing
// content-length is synthesized whenever the body is non-empty or the
// command is SEND, MESSAGE or ERROR.
func (f *Frame) Marshal(v Version) ([]byte, error) {
	if f.IsHeartBeat() {
		if v == V10 {
			return nil, nil
		}
		return []byte{'\n'}, nil
	}

	var b strings.Builder
	b.WriteString(f.Command)
	b.WriteByte('\n')

	wroteContentLength := false
	for _, h := range f.headers {
		if h.Name == HdrContentLength {
			wroteContentLength = true
		}
		b.WriteString(EscapeHeader(v, h.Name))
		b.WriteByte(':')
		b.WriteString(EscapeHeader(v, h.Value))
		b.WriteByte('\n')
	}
	if !wroteContentLength && (len(f.Body) > 0 || framesWithAutoContentLength[f.Command]) {
		b.WriteString(HdrContentLength)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(len(f.Body)))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	out := []byte(b.String())
	out = append(out, f.Body...)
	out = append(out, 0)
	return out, nil
}
