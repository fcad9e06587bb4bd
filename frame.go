package stomp

import "bytes"

// Version is a negotiated or proposed STOMP protocol version token.
type Version string

const (
	V10 Version = "1.0"
	V11 Version = "1.1"
	V12 Version = "1.2"
)

// SupportedVersions lists every version this module understands, in
// ascending order.
var SupportedVersions = []Version{V10, V11, V12}

// Standard STOMP command names, client- and server-generated.
const (
	CmdConnect     = "CONNECT"
	CmdStomp       = "STOMP"
	CmdDisconnect  = "DISCONNECT"
	CmdSend        = "SEND"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdAck         = "ACK"
	CmdNack        = "NACK"
	CmdBegin       = "BEGIN"
	CmdCommit      = "COMMIT"
	CmdAbort       = "ABORT"

	CmdConnected = "CONNECTED"
	CmdMessage   = "MESSAGE"
	CmdReceipt   = "RECEIPT"
	CmdError     = "ERROR"
)

// Standard header names, gathered here so commands.go and parser.go
// share one vocabulary instead of repeating string literals.
const (
	HdrAcceptVersion = "accept-version"
	HdrAck           = "ack"
	HdrContentType   = "content-type"
	HdrContentLength = "content-length"
	HdrDestination   = "destination"
	HdrHeartBeat     = "heart-beat"
	HdrHost          = "host"
	HdrID            = "id"
	HdrLogin         = "login"
	HdrMessage       = "message"
	HdrMessageID     = "message-id"
	HdrPasscode      = "passcode"
	HdrReceipt       = "receipt"
	HdrReceiptID     = "receipt-id"
	HdrSession       = "session"
	HdrServer        = "server"
	HdrSubscription  = "subscription"
	HdrTransaction   = "transaction"
	HdrVersion       = "version"
)

// Header is a single name/value pair as it appears on the wire. Frame
// keeps headers in an ordered slice (rather than a map) so that
// duplicate headers and insertion order survive a round trip, per
// spec §3: header order must be preserved because STOMP 1.2 mandates
// that the first occurrence of a repeated header is authoritative.
type Header struct {
	Name  string
	Value string
}

// Frame is the unit of STOMP communication: a command, an ordered
// header list, and an opaque body. Treat a Frame as immutable once it
// has been handed to a Parser/Session/commands.* caller for encoding.
type Frame struct {
	Command string
	headers []Header
	Body    []byte
}

// NewFrame builds a frame with the given command and no headers or
// body. Use Add to append headers.
func NewFrame(command string) *Frame {
	return &Frame{Command: command}
}

// IsHeartBeat reports whether f is the distinguished heart-beat frame:
// empty command, no headers, no body.
func (f *Frame) IsHeartBeat() bool {
	return f.Command == "" && len(f.headers) == 0 && len(f.Body) == 0
}

// HeartBeatFrame returns the distinguished heart-beat frame.
func HeartBeatFrame() *Frame {
	return &Frame{}
}

// Add appends a header, preserving any existing occurrence of the same
// name. Use this for headers that are legitimately repeated.
func (f *Frame) Add(name, value string) {
	f.headers = append(f.headers, Header{Name: name, Value: value})
}

// Set replaces the first occurrence of name with value, or appends it
// if absent. Further duplicate occurrences, if any, are untouched,
// since Get only ever looks at the first.
func (f *Frame) Set(name, value string) {
	for i := range f.headers {
		if f.headers[i].Name == name {
			f.headers[i].Value = value
			return
		}
	}
	f.Add(name, value)
}

// Get returns the value of the first occurrence of name, which spec
// §3 designates as authoritative for lookup.
func (f *Frame) Get(name string) (string, bool) {
	for _, h := range f.headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// All returns every occurrence of name, in order.
func (f *Frame) All(name string) []string {
	var vals []string
	for _, h := range f.headers {
		if h.Name == name {
			vals = append(vals, h.Value)
		}
	}
	return vals
}

// Headers returns the full ordered header list. The returned slice
// aliases f's storage; callers must not mutate it in place.
func (f *Frame) Headers() []Header {
	return f.headers
}

// Del removes every occurrence of name.
func (f *Frame) Del(name string) {
	kept := f.headers[:0]
	for _, h := range f.headers {
		if h.Name != name {
			kept = append(kept, h)
		}
	}
	f.headers = kept
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	c := &Frame{Command: f.Command}
	if f.headers != nil {
		c.headers = make([]Header, len(f.headers))
		copy(c.headers, f.headers)
	}
	if f.Body != nil {
		c.Body = make([]byte, len(f.Body))
		copy(c.Body, f.Body)
	}
	return c
}

// Equal reports structural equality over command, headers (order and
// duplicates significant) and body, per spec §4.1.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Command != other.Command {
		return false
	}
	if len(f.headers) != len(other.headers) {
		return false
	}
	for i := range f.headers {
		if f.headers[i] != other.headers[i] {
			return false
		}
	}
	return bytes.Equal(f.Body, other.Body)
}
