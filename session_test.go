package stomp

import (
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestSessionConnectTransitionsToConnecting(t *testing.T) {
	clk := fakeclock.NewFakeClock(time.Unix(0, 0))
	s := NewSession(clk, true)

	f, err := s.Connect([]Version{V10, V11, V12}, "guest", "secret", "/", HeartBeat{Cx: 1000, Cy: 500}, time.Second)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(CmdConnect, f.Command))
	assert.Check(t, is.Equal(StateConnecting, s.State()))

	accept, _ := f.Get(HdrAcceptVersion)
	assert.Check(t, is.Equal("1.0,1.1,1.2", accept))
}

func TestSessionRejectsServerFrameWhileDisconnected(t *testing.T) {
	s := NewSession(nil, true)
	connected := NewFrame(CmdConnected)
	connected.Add(HdrVersion, "1.2")
	err := s.HandleConnected(connected)
	assert.Check(t, err != nil)
	kind, _ := KindOf(err)
	assert.Check(t, is.Equal(ProtocolError, kind))
}

// TestSessionConnectNegotiationScenario reproduces spec §8 scenario 3: client
// proposes accept-version 1.0,1.1,1.2 and heart-beat "1000,500"; server
// replies CONNECTED version:1.1 heart-beat:500,1000. Negotiated send
// interval is max(1000,1000)=1000ms, receive interval max(500,500)=500ms.
func TestSessionConnectNegotiationScenario(t *testing.T) {
	clk := fakeclock.NewFakeClock(time.Unix(0, 0))
	s := NewSession(clk, true)

	_, err := s.Connect([]Version{V10, V11, V12}, "", "", "/", HeartBeat{Cx: 1000, Cy: 500}, 0)
	assert.NilError(t, err)

	connected := NewFrame(CmdConnected)
	connected.Add(HdrVersion, "1.1")
	connected.Add(HdrHeartBeat, "500,1000")
	connected.Add(HdrSession, "sess-1")
	connected.Add(HdrServer, "broker/1.0")

	assert.NilError(t, s.HandleConnected(connected))
	assert.Check(t, is.Equal(StateConnected, s.State()))
	assert.Check(t, is.Equal(V11, s.Version()))
	assert.Check(t, is.Equal("sess-1", s.ID()))
	assert.Check(t, is.Equal("broker/1.0", s.Server()))

	hb := s.HeartBeat()
	assert.Check(t, is.Equal(1000*time.Millisecond, hb.SendEvery))
	assert.Check(t, is.Equal(500*time.Millisecond, hb.RecvEvery))
}

func TestSessionHandleErrorWhileConnectingReturnsToDisconnected(t *testing.T) {
	s := NewSession(nil, true)
	_, err := s.Connect([]Version{V12}, "", "", "/", HeartBeat{}, 0)
	assert.NilError(t, err)

	errFrame := NewFrame(CmdError)
	errFrame.Add(HdrMessage, "auth failed")
	info, err := s.HandleError(errFrame)
	assert.NilError(t, err)
	assert.Check(t, is.Equal("auth failed", info.Message))
	assert.Check(t, is.Equal(StateDisconnected, s.State()))
}

func TestSessionConnectTimeout(t *testing.T) {
	clk := fakeclock.NewFakeClock(time.Unix(0, 0))
	s := NewSession(clk, true)
	_, err := s.Connect([]Version{V12}, "", "", "/", HeartBeat{}, 5*time.Second)
	assert.NilError(t, err)

	assert.Check(t, !s.CheckConnectTimeout(clk.Now()))
	clk.Increment(6 * time.Second)
	assert.Check(t, s.CheckConnectTimeout(clk.Now()))

	err = s.Timeout()
	assert.Check(t, err != nil)
	kind, _ := KindOf(err)
	assert.Check(t, is.Equal(ConnectionTimeout, kind))
	assert.Check(t, is.Equal(StateDisconnected, s.State()))
}

func connectedSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(fakeclock.NewFakeClock(time.Unix(0, 0)), true)
	_, err := s.Connect([]Version{V12}, "", "", "/", HeartBeat{}, 0)
	assert.NilError(t, err)
	connected := NewFrame(CmdConnected)
	connected.Add(HdrVersion, "1.2")
	assert.NilError(t, s.HandleConnected(connected))
	return s
}

// TestSessionSubscriptionReplayScenario reproduces spec §8 scenario 4:
// subscribe tokens a, b, c; unsubscribe b; disconnect; replay() yields a
// then c in that order, with identical tokens.
func TestSessionSubscriptionReplayScenario(t *testing.T) {
	s := connectedSession(t)

	_, tokA, err := s.Subscribe("/queue/a", nil, AckAuto, "handler-a", "")
	assert.NilError(t, err)
	_, tokB, err := s.Subscribe("/queue/b", nil, AckAuto, "handler-b", "")
	assert.NilError(t, err)
	_, tokC, err := s.Subscribe("/queue/c", nil, AckAuto, "handler-c", "")
	assert.NilError(t, err)

	_, err = s.Unsubscribe(tokB, "")
	assert.NilError(t, err)

	s.Disconnected(nil)
	assert.Check(t, is.Equal(StateDisconnected, s.State()))

	next := s.Replay()
	var replayed []ReplayEntry
	for {
		entry, ok := next()
		if !ok {
			break
		}
		replayed = append(replayed, entry)
	}
	assert.Check(t, is.Len(replayed, 2))
	assert.Check(t, is.Equal(tokA, replayed[0].Token))
	assert.Check(t, is.Equal("/queue/a", replayed[0].Destination))
	assert.Check(t, is.Equal(tokC, replayed[1].Token))
	assert.Check(t, is.Equal("/queue/c", replayed[1].Destination))
}

func TestSessionGracefulDisconnectCompletesOnMatchingReceipt(t *testing.T) {
	s := connectedSession(t)
	f, err := s.Disconnect("rcpt-1")
	assert.NilError(t, err)
	assert.Check(t, is.Equal(StateDisconnecting, s.State()))
	rid, _ := f.Get(HdrReceipt)
	assert.Check(t, is.Equal("rcpt-1", rid))

	receipt := NewFrame(CmdReceipt)
	receipt.Add(HdrReceiptID, "rcpt-1")
	assert.NilError(t, s.HandleReceipt(receipt))
	assert.Check(t, is.Equal(StateDisconnected, s.State()))
}

func TestSessionTransactionGatesSendAndAck(t *testing.T) {
	s := connectedSession(t)
	_, err := s.Send("/queue/a", []byte("x"), "", nil, "", "no-such-tx")
	assert.Check(t, err != nil)

	_, err = s.Begin("tx1", "")
	assert.NilError(t, err)
	f, err := s.Send("/queue/a", []byte("x"), "", nil, "", "tx1")
	assert.NilError(t, err)
	tx, _ := f.Get(HdrTransaction)
	assert.Check(t, is.Equal("tx1", tx))

	_, err = s.Commit("tx1", "")
	assert.NilError(t, err)
	_, err = s.Commit("tx1", "")
	assert.Check(t, err != nil)
}

func TestSessionHandleMessageResolvesSubscription(t *testing.T) {
	s := connectedSession(t)
	_, tok, err := s.Subscribe("/queue/a", nil, AckClient, "handler", "")
	assert.NilError(t, err)

	msg := NewFrame(CmdMessage)
	msg.Add(HdrDestination, "/queue/a")
	msg.Add(HdrMessageID, "m-1")
	msg.Add(HdrSubscription, tok)
	msg.Body = []byte("payload")

	sub, info, err := s.HandleMessage(msg)
	assert.NilError(t, err)
	assert.Check(t, is.Equal("handler", sub.Handler))
	assert.Check(t, is.Equal("m-1", info.MessageID))
	assert.Check(t, is.DeepEqual([]byte("payload"), info.Body))
}

func TestSessionHandleMessageRejectsUnknownSubscription(t *testing.T) {
	s := connectedSession(t)
	msg := NewFrame(CmdMessage)
	msg.Add(HdrDestination, "/queue/a")
	msg.Add(HdrMessageID, "m-1")
	msg.Add(HdrSubscription, "ghost")

	_, _, err := s.HandleMessage(msg)
	assert.Check(t, err != nil)
}

// TestSessionHeartBeatTimeoutScenario reproduces spec §8 scenario 6:
// negotiated receive interval 1000ms, default slack 2.0; no bytes received
// for 2050ms means the session reports a peer timeout.
func TestSessionHeartBeatTimeoutScenario(t *testing.T) {
	clk := fakeclock.NewFakeClock(time.Unix(0, 0))
	s := NewSession(clk, true)
	_, err := s.Connect([]Version{V12}, "", "", "/", HeartBeat{Cx: 0, Cy: 1000}, 0)
	assert.NilError(t, err)

	connected := NewFrame(CmdConnected)
	connected.Add(HdrVersion, "1.2")
	connected.Add(HdrHeartBeat, "1000,0")
	assert.NilError(t, s.HandleConnected(connected))

	assert.Check(t, !s.PeerTimedOut(clk.Now()))
	clk.Increment(2000 * time.Millisecond)
	assert.Check(t, !s.PeerTimedOut(clk.Now()))
	clk.Increment(50 * time.Millisecond)
	assert.Check(t, s.PeerTimedOut(clk.Now()))

	s.MarkReceived(clk.Now())
	assert.Check(t, !s.PeerTimedOut(clk.Now()))
}

func TestSessionFlushResetsToFreshDisconnected(t *testing.T) {
	s := connectedSession(t)
	_, _, err := s.Subscribe("/queue/a", nil, AckAuto, nil, "")
	assert.NilError(t, err)

	s.Flush()
	assert.Check(t, is.Equal(StateDisconnected, s.State()))
	assert.Check(t, is.Equal(Version(""), s.Version()))
	assert.Check(t, is.Equal("", s.ID()))

	next := s.Replay()
	_, ok := next()
	assert.Check(t, !ok)
}

func TestSessionNackForbiddenOn10(t *testing.T) {
	s := NewSession(nil, true)
	_, err := s.Connect([]Version{V10}, "", "", "", HeartBeat{}, 0)
	assert.NilError(t, err)
	connected := NewFrame(CmdConnected)
	assert.NilError(t, s.HandleConnected(connected))

	_, err = s.Nack(AckRef{MessageID: "m-1"}, "", "")
	assert.Check(t, err != nil)
}
