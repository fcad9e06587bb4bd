package stomp

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestParseHeartBeatRoundTrip(t *testing.T) {
	hb := HeartBeat{Cx: 500, Cy: 1000}
	parsed, err := ParseHeartBeat(hb.String())
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(hb, parsed))
}

func TestParseHeartBeatRejectsMalformed(t *testing.T) {
	_, err := ParseHeartBeat("not-a-pair")
	assert.Check(t, err != nil)
	_, err = ParseHeartBeat("1,2,3")
	assert.Check(t, err != nil)
	_, err = ParseHeartBeat("-1,0")
	assert.Check(t, err != nil)
}

func TestNegotiateHeartBeatTakesMaxOfEachDirection(t *testing.T) {
	client := HeartBeat{Cx: 1000, Cy: 2000}
	server := HeartBeat{Cx: 500, Cy: 1500}
	n := NegotiateHeartBeat(client, server)
	assert.Check(t, is.Equal(1500*time.Millisecond, n.SendEvery))
	assert.Check(t, is.Equal(2000*time.Millisecond, n.RecvEvery))
}

func TestNegotiateHeartBeatZeroOnEitherSideDisablesDirection(t *testing.T) {
	n := NegotiateHeartBeat(HeartBeat{Cx: 0, Cy: 1000}, HeartBeat{Cx: 500, Cy: 500})
	assert.Check(t, is.Equal(time.Duration(0), n.SendEvery))
	assert.Check(t, n.RecvEvery > 0)
}

func TestHeartBeatMonitorShouldSendAndPeerTimedOut(t *testing.T) {
	m := newHeartBeatMonitor()
	now := time.Unix(0, 0)
	m.reset(NegotiatedHeartBeat{SendEvery: 100 * time.Millisecond, RecvEvery: 100 * time.Millisecond}, now)

	assert.Check(t, !m.shouldSend(now.Add(50*time.Millisecond)))
	assert.Check(t, m.shouldSend(now.Add(100*time.Millisecond)))

	assert.Check(t, !m.peerTimedOut(now.Add(150*time.Millisecond)))
	assert.Check(t, m.peerTimedOut(now.Add(201*time.Millisecond)))

	m.markReceived(now.Add(190 * time.Millisecond))
	assert.Check(t, !m.peerTimedOut(now.Add(250*time.Millisecond)))
}

func TestHeartBeatMonitorDisabledDirectionNeverFires(t *testing.T) {
	m := newHeartBeatMonitor()
	m.reset(NegotiatedHeartBeat{}, time.Unix(0, 0))
	assert.Check(t, !m.shouldSend(time.Unix(1000, 0)))
	assert.Check(t, !m.peerTimedOut(time.Unix(1000, 0)))
}
