package failover

import (
	"math/rand"
	"time"

	stomp "github.com/circadence-andrew/stompest"
)

// Transport is the failover broker iterator from spec §4.6: repeated
// calls to Next produce (broker, delay) pairs, infinite iff
// MaxReconnectAttempts is -1. It owns no socket, thread or timer
// (§5); the surrounding client is responsible for sleeping the
// returned delay and dialing the returned broker.
type Transport struct {
	cfg Config
	rng *rand.Rand

	// plainOrder is the broker sequence in effect for
	// priorityBackup=false; otherwise primary plus the current rotation
	// of secondaries form the sequence. Both are fixed at construction
	// time (after an optional one-time shuffle); priorityBackup reorders
	// only the secondaries slice.
	primary       Broker
	secondaries   []Broker
	plainOrder    []Broker
	hasPrimary    bool
	rotatedPass   int
	attempts      int
	everConnected bool
}

// New builds a Transport from an already-parsed Config. seed makes
// the shuffle and jitter deterministic (§8 invariant 5: a fixed seed
// yields a deterministic prefix of any length).
func New(cfg Config, seed int64) (*Transport, error) {
	if len(cfg.Brokers) == 0 {
		return nil, stomp.NewError(stomp.MalformedURI, "failover config has no brokers")
	}
	t := &Transport{cfg: cfg, rng: rand.New(rand.NewSource(seed))}

	brokers := append([]Broker(nil), cfg.Brokers...)
	if cfg.Randomize {
		t.rng.Shuffle(len(brokers), func(i, j int) { brokers[i], brokers[j] = brokers[j], brokers[i] })
	}

	if cfg.PriorityBackup {
		t.hasPrimary = true
		t.primary = brokers[0]
		t.secondaries = append([]Broker(nil), brokers[1:]...)
	} else {
		t.plainOrder = brokers
	}
	return t, nil
}

// ParseAndNew parses uri and constructs a Transport from it in one step.
func ParseAndNew(uri string, seed int64) (*Transport, error) {
	cfg, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return New(cfg, seed)
}

// sequence returns the broker order for the pass currently in
// progress. For priorityBackup it is [primary, secondaries...] with
// secondaries in their current rotation.
func (t *Transport) sequence() []Broker {
	if !t.hasPrimary {
		return t.plainOrder
	}
	seq := make([]Broker, 0, 1+len(t.secondaries))
	seq = append(seq, t.primary)
	seq = append(seq, t.secondaries...)
	return seq
}

func (t *Transport) rotateSecondaries() {
	if len(t.secondaries) < 2 {
		return
	}
	first := t.secondaries[0]
	copy(t.secondaries, t.secondaries[1:])
	t.secondaries[len(t.secondaries)-1] = first
}

func (t *Transport) effectiveLimit() int {
	if !t.everConnected && t.cfg.StartupMaxReconnectAttempts >= 0 {
		return t.cfg.StartupMaxReconnectAttempts
	}
	return t.cfg.MaxReconnectAttempts
}

// Next returns the next (broker, delay) pair, or a NO_MORE_BROKERS
// error once the effective attempt limit (§4.6 step 4/5) is reached.
func (t *Transport) Next() (Broker, time.Duration, error) {
	limit := t.effectiveLimit()
	if limit >= 0 && t.attempts >= limit {
		return Broker{}, 0, stomp.NewError(stomp.NoMoreBrokers, "failover exhausted after %d attempts", t.attempts)
	}

	n := len(t.sequence())
	posInPass := t.attempts % n
	pass := t.attempts / n
	if t.hasPrimary && posInPass == 0 && pass > 0 && pass != t.rotatedPass {
		t.rotateSecondaries()
		t.rotatedPass = pass
	}

	broker := t.sequence()[posInPass]
	delay := t.delayFor(t.attempts)
	t.attempts++
	return broker, delay, nil
}

// delayFor computes the reconnect delay for the n-th attempt overall
// (0-based, counted since construction or the last Succeeded/Reset)
// per §4.6 step 3 and the worked example in §8 scenario 5: the very
// first attempt is always 0, and every attempt after that follows the
// constant or exponential backoff curve keyed off the *global*
// attempt count — backoff does not reset each time the broker list
// wraps around to a new pass.
func (t *Transport) delayFor(n int) time.Duration {
	if n == 0 {
		return 0
	}
	var delay time.Duration
	if t.cfg.UseExponentialBackOff {
		factor := 1.0
		for i := 0; i < n-1; i++ {
			factor *= t.cfg.BackOffMultiplier
		}
		delay = time.Duration(float64(t.cfg.InitialReconnectDelay) * factor)
		if delay > t.cfg.MaxReconnectDelay {
			delay = t.cfg.MaxReconnectDelay
		}
	} else {
		delay = t.cfg.InitialReconnectDelay
	}
	if t.cfg.ReconnectDelayJitter > 0 {
		jitter := time.Duration(t.rng.Int63n(2*int64(t.cfg.ReconnectDelayJitter)+1)) - t.cfg.ReconnectDelayJitter
		delay += jitter
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

// Succeeded tells the transport a CONNECTED was received, resetting
// the attempt counter so the steady-state MaxReconnectAttempts limit
// governs subsequent reconnects instead of StartupMaxReconnectAttempts
// (§4.6 step 5).
func (t *Transport) Succeeded() {
	t.everConnected = true
	t.attempts = 0
	t.rotatedPass = 0
}

// Reset clears all attempt bookkeeping without affecting the
// startup/steady-state distinction, for a caller that wants to retry
// the same broker set from scratch (e.g. after flush()).
func (t *Transport) Reset() {
	t.attempts = 0
	t.rotatedPass = 0
}
