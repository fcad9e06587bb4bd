package stomp

import (
	"sort"
	"strconv"
	"strings"
)

// AckMode is a subscription acknowledgement mode.
type AckMode string

const (
	AckAuto             AckMode = "auto"
	AckClient           AckMode = "client"
	AckClientIndividual AckMode = "client-individual"
)

// validAckModes mirrors wjmboss-stompngo's validAckModes10/validAckModes1x
// split: client-individual only exists from 1.1 onward.
var validAckModes10 = map[AckMode]bool{AckAuto: true, AckClient: true}
var validAckModesAll = map[AckMode]bool{AckAuto: true, AckClient: true, AckClientIndividual: true}

func validAckMode(v Version, mode AckMode) bool {
	if v == V10 {
		return validAckModes10[mode]
	}
	return validAckModesAll[mode]
}

// This file is the commands layer from spec §4.4: a stateless set of
// pure functions, one per STOMP command, each taking typed arguments
// plus the negotiated version and returning a fully-formed Frame, or a
// PROTOCOL_ERROR if the combination is illegal for that version.
// Grounded on djoyahoy-stomp's transport.go (one method per command)
// and mschneider82-stomp's message/frame.go Validate dispatch (one
// validate* func per command, required-headers helper).

// ConnectOptions carries the fields CONNECT/STOMP frames may set.
type ConnectOptions struct {
	Host      string
	Login     string
	Passcode  string
	HeartBeat HeartBeat
	Receipt   string
}

// Connect builds a CONNECT frame proposing versions to the server.
// Per spec §4.4: 1.1+ requires accept-version and host; a lone 1.0
// proposal permits omitting both.
func Connect(versions []Version, opts ConnectOptions) (*Frame, error) {
	if len(versions) == 0 {
		return nil, newError(ProtocolError, "CONNECT requires at least one proposed version")
	}
	only10 := len(versions) == 1 && versions[0] == V10

	f := NewFrame(CmdConnect)
	if !only10 {
		if opts.Host == "" {
			return nil, newError(ProtocolError, "CONNECT requires host for STOMP 1.1+")
		}
		f.Add(HdrAcceptVersion, joinVersions(versions))
	}
	if opts.Host != "" {
		f.Add(HdrHost, opts.Host)
	}
	if opts.Login != "" {
		f.Add(HdrLogin, opts.Login)
	}
	if opts.Passcode != "" {
		f.Add(HdrPasscode, opts.Passcode)
	}
	if !only10 {
		f.Add(HdrHeartBeat, opts.HeartBeat.String())
	}
	if opts.Receipt != "" {
		f.Add(HdrReceipt, opts.Receipt)
	}
	return f, nil
}

func joinVersions(versions []Version) string {
	strs := make([]string, len(versions))
	for i, v := range versions {
		strs[i] = string(v)
	}
	return strings.Join(strs, ",")
}

// Disconnect builds a DISCONNECT frame.
func Disconnect(receipt string) *Frame {
	f := NewFrame(CmdDisconnect)
	if receipt != "" {
		f.Add(HdrReceipt, receipt)
	}
	return f
}

// forbiddenSendHeaders are headers Send computes itself; a caller
// supplying one of these as an extra header would silently conflict
// with the frame's own semantics, so they are dropped instead,
// matching djoyahoy-stomp's transport.go `forbidden` header set.
var forbiddenSendHeaders = map[string]bool{
	HdrDestination:   true,
	HdrContentType:   true,
	HdrContentLength: true,
	HdrReceipt:       true,
	HdrTransaction:   true,
}

// Send builds a SEND frame. contentType may be empty. extra headers
// whose names collide with ones Send manages itself are dropped.
func Send(dest string, body []byte, contentType string, extra []Header, receipt, transaction string) (*Frame, error) {
	if dest == "" {
		return nil, newError(ProtocolError, "SEND requires a destination")
	}
	f := NewFrame(CmdSend)
	f.Add(HdrDestination, dest)
	if contentType != "" {
		f.Add(HdrContentType, contentType)
	}
	// Always carry an explicit content-length for SEND so Marshal
	// doesn't need to append one after the fact (keeps built frames
	// stable across a Marshal/Parse round trip, §8 invariant 1).
	f.Add(HdrContentLength, strconv.Itoa(len(body)))
	for _, h := range extra {
		name := strings.ToLower(h.Name)
		if forbiddenSendHeaders[name] {
			continue
		}
		f.Add(h.Name, h.Value)
	}
	if transaction != "" {
		f.Add(HdrTransaction, transaction)
	}
	if receipt != "" {
		f.Add(HdrReceipt, receipt)
	}
	f.Body = body
	return f, nil
}

// Subscribe builds a SUBSCRIBE frame. id is required from 1.1 onward;
// on 1.0 it is optional (the destination is the de-facto token) but
// this module always assigns one so subscriptions can be tracked and
// replayed uniformly (see SPEC_FULL.md).
func Subscribe(v Version, id, dest string, mode AckMode, extra []Header, receipt string) (*Frame, error) {
	if dest == "" {
		return nil, newError(ProtocolError, "SUBSCRIBE requires a destination")
	}
	if v != V10 && id == "" {
		return nil, newError(ProtocolError, "SUBSCRIBE requires id for STOMP %s", v)
	}
	if !validAckMode(v, mode) {
		return nil, newError(ProtocolError, "ack mode %q not valid for STOMP %s", mode, v)
	}
	f := NewFrame(CmdSubscribe)
	f.Add(HdrDestination, dest)
	if id != "" {
		f.Add(HdrID, id)
	}
	f.Add(HdrAck, string(mode))
	for _, h := range extra {
		f.Add(h.Name, h.Value)
	}
	if receipt != "" {
		f.Add(HdrReceipt, receipt)
	}
	return f, nil
}

// Unsubscribe builds an UNSUBSCRIBE frame. 1.1+ requires id; 1.0
// accepts either id or destination (§4.4).
func Unsubscribe(v Version, id, dest string, receipt string) (*Frame, error) {
	if v != V10 && id == "" {
		return nil, newError(ProtocolError, "UNSUBSCRIBE requires id for STOMP %s", v)
	}
	if v == V10 && id == "" && dest == "" {
		return nil, newError(ProtocolError, "UNSUBSCRIBE requires id or destination for STOMP 1.0")
	}
	f := NewFrame(CmdUnsubscribe)
	if id != "" {
		f.Add(HdrID, id)
	}
	if dest != "" && id == "" {
		f.Add(HdrDestination, dest)
	}
	if receipt != "" {
		f.Add(HdrReceipt, receipt)
	}
	return f, nil
}

// AckRef identifies the MESSAGE being acknowledged, in whichever
// fields the negotiated version requires (§4.4): 1.2 references a
// single "id" (copied from the MESSAGE's "ack" header); 1.1
// references message-id + subscription; 1.0 references message-id
// alone.
type AckRef struct {
	ID           string // STOMP 1.2: MESSAGE's "ack" header
	MessageID    string // STOMP 1.0/1.1
	Subscription string // STOMP 1.1
}

func ackHeaders(v Version, ref AckRef) ([]Header, error) {
	switch v {
	case V12:
		if ref.ID == "" {
			return nil, newError(ProtocolError, "ACK/NACK requires id for STOMP 1.2")
		}
		return []Header{{HdrID, ref.ID}}, nil
	case V11:
		if ref.MessageID == "" || ref.Subscription == "" {
			return nil, newError(ProtocolError, "ACK/NACK requires message-id and subscription for STOMP 1.1")
		}
		return []Header{{HdrMessageID, ref.MessageID}, {HdrSubscription, ref.Subscription}}, nil
	default: // V10
		if ref.MessageID == "" {
			return nil, newError(ProtocolError, "ACK requires message-id for STOMP 1.0")
		}
		return []Header{{HdrMessageID, ref.MessageID}}, nil
	}
}

// Ack builds an ACK frame.
func Ack(v Version, ref AckRef, transaction, receipt string) (*Frame, error) {
	hdrs, err := ackHeaders(v, ref)
	if err != nil {
		return nil, err
	}
	f := NewFrame(CmdAck)
	for _, h := range hdrs {
		f.Add(h.Name, h.Value)
	}
	if transaction != "" {
		f.Add(HdrTransaction, transaction)
	}
	if receipt != "" {
		f.Add(HdrReceipt, receipt)
	}
	return f, nil
}

// Nack builds a NACK frame. NACK does not exist in STOMP 1.0 (§4.4).
func Nack(v Version, ref AckRef, transaction, receipt string) (*Frame, error) {
	if v == V10 {
		return nil, newError(ProtocolError, "NACK is not available in STOMP 1.0")
	}
	hdrs, err := ackHeaders(v, ref)
	if err != nil {
		return nil, err
	}
	f := NewFrame(CmdNack)
	for _, h := range hdrs {
		f.Add(h.Name, h.Value)
	}
	if transaction != "" {
		f.Add(HdrTransaction, transaction)
	}
	if receipt != "" {
		f.Add(HdrReceipt, receipt)
	}
	return f, nil
}

func txFrame(cmd, tid, receipt string) (*Frame, error) {
	if tid == "" {
		return nil, newError(ProtocolError, "%s requires a transaction id", cmd)
	}
	f := NewFrame(cmd)
	f.Add(HdrTransaction, tid)
	if receipt != "" {
		f.Add(HdrReceipt, receipt)
	}
	return f, nil
}

// Begin builds a BEGIN frame.
func Begin(tid, receipt string) (*Frame, error) { return txFrame(CmdBegin, tid, receipt) }

// Commit builds a COMMIT frame.
func Commit(tid, receipt string) (*Frame, error) { return txFrame(CmdCommit, tid, receipt) }

// Abort builds an ABORT frame.
func Abort(tid, receipt string) (*Frame, error) { return txFrame(CmdAbort, tid, receipt) }

// --- Server-frame handlers (§4.4) ---
// Each accepts a parsed server Frame and returns a small record of the
// semantically meaningful fields, or a PROTOCOL_ERROR if required
// headers are missing.

// ConnectedInfo is the result of parsing a CONNECTED frame.
type ConnectedInfo struct {
	Version   Version
	Session   string
	Server    string
	HeartBeat HeartBeat
}

// ParseConnected extracts the negotiated version, session id, server
// identity and heart-beat pair from a CONNECTED frame. requested is
// the set of versions the client proposed in its CONNECT, used to
// validate the server picked one actually on offer.
func ParseConnected(f *Frame, requested []Version) (ConnectedInfo, error) {
	if f.Command != CmdConnected {
		return ConnectedInfo{}, newError(ProtocolError, "expected CONNECTED, got %s", f.Command)
	}
	info := ConnectedInfo{Version: V10}
	if v, ok := f.Get(HdrVersion); ok {
		info.Version = Version(v)
		if !versionOffered(requested, info.Version) {
			return ConnectedInfo{}, newError(ProtocolError, "server negotiated unoffered version %s", v)
		}
	}
	info.Session, _ = f.Get(HdrSession)
	info.Server, _ = f.Get(HdrServer)
	if hb, ok := f.Get(HdrHeartBeat); ok {
		parsed, err := ParseHeartBeat(hb)
		if err != nil {
			return ConnectedInfo{}, err
		}
		info.HeartBeat = parsed
	}
	return info, nil
}

func versionOffered(requested []Version, v Version) bool {
	if len(requested) == 0 {
		return true
	}
	for _, r := range requested {
		if r == v {
			return true
		}
	}
	return false
}

// NegotiateVersion picks the highest version present in both client
// and server lists, per §4.5 ("negotiate version: highest common in
// accept-version; fall back to 1.0 if absent"). serverVersion is the
// comma-separated accept-version value the server may echo; when
// absent, 1.0 is assumed.
func NegotiateVersion(proposed []Version, serverVersion string) (Version, error) {
	if serverVersion == "" {
		return V10, nil
	}
	candidates := strings.Split(serverVersion, ",")
	sort.Sort(sort.Reverse(sort.StringSlice(candidates)))
	for _, c := range candidates {
		for _, p := range proposed {
			if string(p) == c {
				return Version(c), nil
			}
		}
	}
	return "", newError(ProtocolError, "no common version between proposed %v and server %q", proposed, serverVersion)
}

// MessageInfo is the result of parsing a MESSAGE frame.
type MessageInfo struct {
	Destination  string
	MessageID    string
	Subscription string
	Ack          string // present on 1.2, used to build the matching ACK/NACK
	Body         []byte
	Headers      []Header
}

// ParseMessage validates and extracts the fields of a MESSAGE frame.
func ParseMessage(f *Frame) (MessageInfo, error) {
	if f.Command != CmdMessage {
		return MessageInfo{}, newError(ProtocolError, "expected MESSAGE, got %s", f.Command)
	}
	dest, ok := f.Get(HdrDestination)
	if !ok {
		return MessageInfo{}, newError(ProtocolError, "MESSAGE missing destination")
	}
	msgID, ok := f.Get(HdrMessageID)
	if !ok {
		return MessageInfo{}, newError(ProtocolError, "MESSAGE missing message-id")
	}
	sub, ok := f.Get(HdrSubscription)
	if !ok {
		return MessageInfo{}, newError(ProtocolError, "MESSAGE missing subscription")
	}
	ack, _ := f.Get(HdrAck)
	return MessageInfo{
		Destination:  dest,
		MessageID:    msgID,
		Subscription: sub,
		Ack:          ack,
		Body:         f.Body,
		Headers:      f.Headers(),
	}, nil
}

// ReceiptInfo is the result of parsing a RECEIPT frame.
type ReceiptInfo struct {
	ReceiptID string
}

// ParseReceipt validates and extracts the receipt-id of a RECEIPT frame.
func ParseReceipt(f *Frame) (ReceiptInfo, error) {
	if f.Command != CmdReceipt {
		return ReceiptInfo{}, newError(ProtocolError, "expected RECEIPT, got %s", f.Command)
	}
	id, ok := f.Get(HdrReceiptID)
	if !ok {
		return ReceiptInfo{}, newError(ProtocolError, "RECEIPT missing receipt-id")
	}
	return ReceiptInfo{ReceiptID: id}, nil
}

// ErrorInfo is the result of parsing an ERROR frame.
type ErrorInfo struct {
	Message   string
	Body      []byte
	ReceiptID string
}

// ParseError extracts the fields of an ERROR frame.
func ParseError(f *Frame) (ErrorInfo, error) {
	if f.Command != CmdError {
		return ErrorInfo{}, newError(ProtocolError, "expected ERROR, got %s", f.Command)
	}
	msg, _ := f.Get(HdrMessage)
	receiptID, _ := f.Get(HdrReceiptID)
	return ErrorInfo{Message: msg, Body: f.Body, ReceiptID: receiptID}, nil
}
