package stomp

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HeartBeat is a (cx, cy) pair in milliseconds: cx is the minimum send
// interval, cy is the desired receive interval, 0 meaning "cannot/does
// not want" (§3).
type HeartBeat struct {
	Cx int
	Cy int
}

// String formats the pair as the STOMP wire value, e.g. "500,1000".
func (h HeartBeat) String() string {
	return fmt.Sprintf("%d,%d", h.Cx, h.Cy)
}

// ParseHeartBeat decodes a "heart-beat" header value.
func ParseHeartBeat(s string) (HeartBeat, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return HeartBeat{}, newError(ProtocolError, "malformed heart-beat value %q", s)
	}
	cx, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || cx < 0 {
		return HeartBeat{}, newError(ProtocolError, "malformed heart-beat value %q", s)
	}
	cy, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || cy < 0 {
		return HeartBeat{}, newError(ProtocolError, "malformed heart-beat value %q", s)
	}
	return HeartBeat{Cx: cx, Cy: cy}, nil
}

// NegotiatedHeartBeat is the pair of intervals actually in effect
// after CONNECT/CONNECTED negotiation.
type NegotiatedHeartBeat struct {
	SendEvery time.Duration // how often this side must send to the peer
	RecvEvery time.Duration // how often this side expects to hear from the peer
}

// NegotiateHeartBeat combines the client's proposal and the server's
// reply per §4.5 / §8 scenario 3: send interval = max(client.Cx,
// server.Cy), zero if either side is zero; receive interval =
// max(client.Cy, server.Cx), zero if either side is zero.
func NegotiateHeartBeat(client, server HeartBeat) NegotiatedHeartBeat {
	var n NegotiatedHeartBeat
	if client.Cx != 0 && server.Cy != 0 {
		n.SendEvery = time.Duration(maxInt(client.Cx, server.Cy)) * time.Millisecond
	}
	if client.Cy != 0 && server.Cx != 0 {
		n.RecvEvery = time.Duration(maxInt(client.Cy, server.Cx)) * time.Millisecond
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// DefaultTimeoutSlack is the default multiplier applied to the
// negotiated receive interval before declaring the peer timed out
// (§4.5: "the receive deadline is the negotiated receive interval
// times an implementation-defined slack (default 2.0)").
const DefaultTimeoutSlack = 2.0

// heartBeatMonitor tracks the timestamps needed to answer "is it time
// to send" and "has the peer timed out" without owning any timer
// itself — all timing decisions are made against an explicitly passed
// `now`, consistent with the core being I/O- and clock-free (§5).
type heartBeatMonitor struct {
	negotiated NegotiatedHeartBeat
	slack      float64
	lastSent   time.Time
	lastRecv   time.Time
}

func newHeartBeatMonitor() *heartBeatMonitor {
	return &heartBeatMonitor{slack: DefaultTimeoutSlack}
}

func (m *heartBeatMonitor) reset(n NegotiatedHeartBeat, now time.Time) {
	m.negotiated = n
	m.lastSent = now
	m.lastRecv = now
}

func (m *heartBeatMonitor) markSent(now time.Time) { m.lastSent = now }
func (m *heartBeatMonitor) markReceived(now time.Time) { m.lastRecv = now }

// shouldSend reports whether now is at or past the deadline for
// sending the next heart-beat.
func (m *heartBeatMonitor) shouldSend(now time.Time) bool {
	if m.negotiated.SendEvery <= 0 {
		return false
	}
	return !now.Before(m.lastSent.Add(m.negotiated.SendEvery))
}

// peerTimedOut reports whether now is past the receive deadline,
// which is the negotiated receive interval scaled by slack.
func (m *heartBeatMonitor) peerTimedOut(now time.Time) bool {
	if m.negotiated.RecvEvery <= 0 {
		return false
	}
	deadline := time.Duration(float64(m.negotiated.RecvEvery) * m.slack)
	return now.After(m.lastRecv.Add(deadline))
}
