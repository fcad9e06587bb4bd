package stomp

import (
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"
)

// State is a value from the set named in spec §3: {DISCONNECTED,
// CONNECTING, CONNECTED, DISCONNECTING}.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnecting:
		return "DISCONNECTING"
	default:
		return "UNKNOWN"
	}
}

// Session is the connection-lifecycle state machine from spec §4.5: an
// explicit tagged state plus the transitions below, entirely
// in-memory and I/O-free. It owns subscriptions, transactions,
// receipts and heart-beat bookkeeping; it never touches a socket.
//
// Following §9 ("implement the session as an explicit tagged state
// plus a transition table, not via per-state subclasses"), every
// command and server-frame method begins by checking s.state against
// the states it is legal from via ensureState, so the invariants in
// §4.5 are checkable at each call site rather than scattered across
// subclasses. Disconnected and Flush are accepted in any state; the
// accessors and heart-beat queries do not check state.
type Session struct {
	clock clock.Clock
	// check mirrors the source's Session(version, check=True)
	// constructor flag. When true, Connect requires an explicit host
	// for STOMP 1.1+ proposals, matching commands.Connect's validation.
	// When false, a missing host defaults to "/", matching
	// djoyahoy-stomp's client.go fallback (`req.Headers["host"] = "/"`).
	check bool

	state   State
	version Version

	proposedVersions []Version
	clientHeartBeat  HeartBeat

	sessionID string
	server    string

	subs     *subscriptionTable
	txs      *transactionTable
	receipts *Receipts
	hb       *heartBeatMonitor

	connectDeadline    time.Time
	hasConnectDeadline bool

	// disconnectReceiptID is the receipt id attached to the
	// outstanding DISCONNECT frame, if any, used to recognize the
	// matching RECEIPT that completes DISCONNECTING -> DISCONNECTED.
	disconnectReceiptID string
}

// NewSession returns a fresh session in the DISCONNECTED state.
func NewSession(clk clock.Clock, check bool) *Session {
	if clk == nil {
		clk = clock.NewClock()
	}
	return &Session{
		clock:    clk,
		check:    check,
		state:    StateDisconnected,
		subs:     newSubscriptionTable(),
		txs:      newTransactionTable(),
		receipts: NewReceipts(),
		hb:       newHeartBeatMonitor(),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Version returns the negotiated protocol version, or "" before
// CONNECTED is processed.
func (s *Session) Version() Version { return s.version }

// ID returns the server-assigned session id, or "" before CONNECTED.
func (s *Session) ID() string { return s.sessionID }

// Server returns the server identity string from CONNECTED, or "".
func (s *Session) Server() string { return s.server }

// Receipts exposes the receipt tracker so a caller can poll Wait/Pending.
func (s *Session) Receipts() *Receipts { return s.receipts }

func (s *Session) ensureState(allowed ...State) error {
	for _, a := range allowed {
		if s.state == a {
			return nil
		}
	}
	return newError(ProtocolError, "operation not valid in state %s", s.state)
}

// Connect transitions DISCONNECTED -> CONNECTING, returning the
// CONNECT frame to send. timeout, if positive, arms the deadline
// CheckConnectTimeout watches.
func (s *Session) Connect(versions []Version, login, passcode, host string, heartBeat HeartBeat, timeout time.Duration) (*Frame, error) {
	if err := s.ensureState(StateDisconnected); err != nil {
		return nil, err
	}
	if host == "" && !s.check && !(len(versions) == 1 && versions[0] == V10) {
		host = "/"
	}
	f, err := Connect(versions, ConnectOptions{Host: host, Login: login, Passcode: passcode, HeartBeat: heartBeat})
	if err != nil {
		return nil, err
	}
	s.proposedVersions = append([]Version(nil), versions...)
	s.clientHeartBeat = heartBeat
	s.state = StateConnecting
	if timeout > 0 {
		s.connectDeadline = s.clock.Now().Add(timeout)
		s.hasConnectDeadline = true
	} else {
		s.hasConnectDeadline = false
	}
	return f, nil
}

// HandleConnected processes a CONNECTED frame, transitioning
// CONNECTING -> CONNECTED and negotiating version and heart-beat.
func (s *Session) HandleConnected(f *Frame) error {
	if err := s.ensureState(StateConnecting); err != nil {
		return err
	}
	info, err := ParseConnected(f, s.proposedVersions)
	if err != nil {
		s.state = StateDisconnected
		return err
	}
	s.version = info.Version
	s.sessionID = info.Session
	s.server = info.Server
	negotiated := NegotiateHeartBeat(s.clientHeartBeat, info.HeartBeat)
	s.hb.reset(negotiated, s.clock.Now())
	s.hasConnectDeadline = false
	s.state = StateConnected
	return nil
}

// HandleError processes a server ERROR frame. It is accepted while
// negotiating or once connected (§4.5's CONNECTING bullet names it
// explicitly; a broker may also send ERROR once connected to force a
// teardown). Subscriptions survive, transactions and receipts do not.
func (s *Session) HandleError(f *Frame) (ErrorInfo, error) {
	if err := s.ensureState(StateConnecting, StateConnected, StateDisconnecting); err != nil {
		return ErrorInfo{}, err
	}
	info, err := ParseError(f)
	if err != nil {
		return ErrorInfo{}, err
	}
	s.teardown()
	return info, nil
}

// Timeout reports CONNECTION_TIMEOUT and forces CONNECTING ->
// DISCONNECTED when the negotiation deadline has passed. Call only
// after CheckConnectTimeout(now) returns true.
func (s *Session) Timeout() error {
	if err := s.ensureState(StateConnecting); err != nil {
		return err
	}
	s.teardown()
	return newError(ConnectionTimeout, "CONNECTED not received before deadline")
}

// CheckConnectTimeout reports whether the CONNECT negotiation deadline
// armed by Connect has passed as of now. The session does not own a
// timer (§5); the surrounding transport calls this against its clock.
func (s *Session) CheckConnectTimeout(now time.Time) bool {
	return s.state == StateConnecting && s.hasConnectDeadline && !now.Before(s.connectDeadline)
}

// Disconnected forces a transition to DISCONNECTED from any state,
// used when the transport reports an unexpected close. Subscriptions
// are preserved for replay; transactions and receipts are cleared.
func (s *Session) Disconnected(reason error) {
	s.teardown()
}

// teardown implements the shared "go to DISCONNECTED, keep
// subscriptions, drop transactions/receipts" logic used by the ERROR,
// timeout, forced-disconnect and graceful-disconnect paths (§4.5).
func (s *Session) teardown() {
	s.state = StateDisconnected
	s.txs.reset()
	s.receipts.Clear()
	s.hasConnectDeadline = false
	s.disconnectReceiptID = ""
}

// Send builds and tracks a SEND frame. Must be CONNECTED.
func (s *Session) Send(dest string, body []byte, contentType string, extra []Header, receipt, transaction string) (*Frame, error) {
	if err := s.ensureState(StateConnected); err != nil {
		return nil, err
	}
	if transaction != "" && !s.txs.isOpen(transaction) {
		return nil, newError(ProtocolError, "transaction %q is not open", transaction)
	}
	f, err := Send(dest, body, contentType, extra, receipt, transaction)
	if err != nil {
		return nil, err
	}
	if receipt != "" {
		s.receipts.Track(receipt, CmdSend)
	}
	return f, nil
}

// Subscribe assigns a fresh token, builds the SUBSCRIBE frame, and
// records the subscription for replay. handler is opaque and never
// inspected (§9).
func (s *Session) Subscribe(dest string, headers []Header, mode AckMode, handler any, receipt string) (*Frame, string, error) {
	if err := s.ensureState(StateConnected); err != nil {
		return nil, "", err
	}
	token := uuid.NewString()
	f, err := Subscribe(s.version, token, dest, mode, headers, receipt)
	if err != nil {
		return nil, "", err
	}
	s.subs.add(&Subscription{Token: token, Destination: dest, Headers: headers, AckMode: mode, Handler: handler})
	if receipt != "" {
		s.receipts.Track(receipt, CmdSubscribe)
	}
	return f, token, nil
}

// Unsubscribe builds the UNSUBSCRIBE frame for token and removes the
// subscription record.
func (s *Session) Unsubscribe(token string, receipt string) (*Frame, error) {
	if err := s.ensureState(StateConnected); err != nil {
		return nil, err
	}
	sub, ok := s.subs.get(token)
	if !ok {
		return nil, newError(ProtocolError, "unknown subscription token %q", token)
	}
	f, err := Unsubscribe(s.version, token, sub.Destination, receipt)
	if err != nil {
		return nil, err
	}
	s.subs.remove(token)
	if receipt != "" {
		s.receipts.Track(receipt, CmdUnsubscribe)
	}
	return f, nil
}

// Ack builds an ACK frame for the referenced MESSAGE.
func (s *Session) Ack(ref AckRef, transaction, receipt string) (*Frame, error) {
	return s.ackOrNack(false, ref, transaction, receipt)
}

// Nack builds a NACK frame for the referenced MESSAGE. Forbidden on
// STOMP 1.0.
func (s *Session) Nack(ref AckRef, transaction, receipt string) (*Frame, error) {
	return s.ackOrNack(true, ref, transaction, receipt)
}

func (s *Session) ackOrNack(nack bool, ref AckRef, transaction, receipt string) (*Frame, error) {
	if err := s.ensureState(StateConnected); err != nil {
		return nil, err
	}
	if transaction != "" && !s.txs.isOpen(transaction) {
		return nil, newError(ProtocolError, "transaction %q is not open", transaction)
	}
	var f *Frame
	var err error
	if nack {
		f, err = Nack(s.version, ref, transaction, receipt)
	} else {
		f, err = Ack(s.version, ref, transaction, receipt)
	}
	if err != nil {
		return nil, err
	}
	if receipt != "" {
		cmd := CmdAck
		if nack {
			cmd = CmdNack
		}
		s.receipts.Track(receipt, cmd)
	}
	return f, nil
}

// Begin opens a transaction and builds its BEGIN frame.
func (s *Session) Begin(tid, receipt string) (*Frame, error) {
	if err := s.ensureState(StateConnected); err != nil {
		return nil, err
	}
	if err := s.txs.begin(tid); err != nil {
		return nil, err
	}
	f, err := Begin(tid, receipt)
	if err != nil {
		s.txs.end(tid)
		return nil, err
	}
	if receipt != "" {
		s.receipts.Track(receipt, CmdBegin)
	}
	return f, nil
}

// Commit closes a transaction and builds its COMMIT frame.
func (s *Session) Commit(tid, receipt string) (*Frame, error) {
	if err := s.ensureState(StateConnected); err != nil {
		return nil, err
	}
	if !s.txs.isOpen(tid) {
		return nil, newError(ProtocolError, "transaction %q is not open", tid)
	}
	f, err := Commit(tid, receipt)
	if err != nil {
		return nil, err
	}
	s.txs.end(tid)
	if receipt != "" {
		s.receipts.Track(receipt, CmdCommit)
	}
	return f, nil
}

// Abort closes a transaction and builds its ABORT frame.
func (s *Session) Abort(tid, receipt string) (*Frame, error) {
	if err := s.ensureState(StateConnected); err != nil {
		return nil, err
	}
	if !s.txs.isOpen(tid) {
		return nil, newError(ProtocolError, "transaction %q is not open", tid)
	}
	f, err := Abort(tid, receipt)
	if err != nil {
		return nil, err
	}
	s.txs.end(tid)
	if receipt != "" {
		s.receipts.Track(receipt, CmdAbort)
	}
	return f, nil
}

// Disconnect builds a DISCONNECT frame and transitions CONNECTED ->
// DISCONNECTING.
func (s *Session) Disconnect(receipt string) (*Frame, error) {
	if err := s.ensureState(StateConnected); err != nil {
		return nil, err
	}
	f := Disconnect(receipt)
	s.state = StateDisconnecting
	s.disconnectReceiptID = receipt
	if receipt != "" {
		s.receipts.Track(receipt, CmdDisconnect)
	}
	return f, nil
}

// HandleReceipt processes a RECEIPT frame, resolving the matching
// tracked receipt. If it matches the outstanding DISCONNECT's
// receipt, DISCONNECTING -> DISCONNECTED (§4.5).
func (s *Session) HandleReceipt(f *Frame) error {
	if err := s.ensureState(StateConnected, StateDisconnecting); err != nil {
		return err
	}
	info, err := ParseReceipt(f)
	if err != nil {
		return err
	}
	s.receipts.Resolve(info.ReceiptID)
	if s.state == StateDisconnecting && info.ReceiptID == s.disconnectReceiptID {
		s.teardown()
	}
	return nil
}

// HandleMessage processes a MESSAGE frame, returning the matching
// subscription so the caller can invoke its opaque handler. The
// session never calls the handler itself (§9).
func (s *Session) HandleMessage(f *Frame) (*Subscription, MessageInfo, error) {
	if err := s.ensureState(StateConnected); err != nil {
		return nil, MessageInfo{}, err
	}
	info, err := ParseMessage(f)
	if err != nil {
		return nil, info, err
	}
	sub, ok := s.subs.get(info.Subscription)
	if !ok {
		return nil, info, newError(ProtocolError, "MESSAGE for unknown subscription %q", info.Subscription)
	}
	return sub, info, nil
}

// Flush resets the session to a fresh DISCONNECTED state: version,
// session id, subscriptions, transactions and receipts are all
// cleared. Per §3, sessions are reusable via flush.
func (s *Session) Flush() {
	s.state = StateDisconnected
	s.version = ""
	s.proposedVersions = nil
	s.sessionID = ""
	s.server = ""
	s.subs.reset()
	s.txs.reset()
	s.receipts.Clear()
	s.hb = newHeartBeatMonitor()
	s.hasConnectDeadline = false
	s.disconnectReceiptID = ""
}

// Replay returns an iterator over subscriptions that survived a
// disconnect/reconnect cycle, in original insertion order, so the
// caller can reissue SUBSCRIBE frames with identical tokens (§4.5, §8
// invariant 4).
func (s *Session) Replay() func() (ReplayEntry, bool) {
	return s.subs.replay()
}

// SendHeartBeat builds a heart-beat frame and marks it sent. The
// caller decides when to call it, typically gated on
// ShouldSendHeartBeat.
func (s *Session) SendHeartBeat(now time.Time) (*Frame, error) {
	if err := s.ensureState(StateConnected); err != nil {
		return nil, err
	}
	s.hb.markSent(now)
	return HeartBeatFrame(), nil
}

// ShouldSendHeartBeat reports whether now is at or past the deadline
// for sending the next heart-beat.
func (s *Session) ShouldSendHeartBeat(now time.Time) bool {
	return s.hb.shouldSend(now)
}

// PeerTimedOut reports whether now is past the receive deadline,
// which is the negotiated receive interval scaled by the slack from
// §4.5 (default 2.0).
func (s *Session) PeerTimedOut(now time.Time) bool {
	return s.hb.peerTimedOut(now)
}

// MarkReceived records that a frame (including a heart-beat) arrived
// at time now, resetting the peer-timeout deadline.
func (s *Session) MarkReceived(now time.Time) {
	s.hb.markReceived(now)
}

// HeartBeat returns the negotiated send/receive intervals.
func (s *Session) HeartBeat() NegotiatedHeartBeat {
	return s.hb.negotiated
}
