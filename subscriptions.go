package stomp

// Subscription is a client-side subscription record (§3). Handler is
// an opaque reference the session carries but never inspects or
// calls — ownership stays with whatever surrounding client supplied
// it, matching §9's guidance to store the handle, not a back-pointer.
type Subscription struct {
	Token       string
	Destination string
	Headers     []Header
	AckMode     AckMode
	Handler     any
}

// ReplayEntry is what Session.Replay yields for each live subscription:
// exactly the data needed to rebuild a SUBSCRIBE frame, per §4.5/§9
// ("replay should not copy subscription state; it iterates the
// existing records").
type ReplayEntry struct {
	Token       string
	Destination string
	Headers     []Header
	AckMode     AckMode
	Handler     any
}

// subscriptionTable tracks live subscriptions in insertion order. A
// plain slice (rather than a map) is the source of truth for order;
// an index map makes lookup by token O(1). Removal compacts the slice
// and rebuilds the index.
type subscriptionTable struct {
	order []*Subscription
	byTok map[string]int // token -> index into order; rebuilt by reindex after removal
}

func newSubscriptionTable() *subscriptionTable {
	return &subscriptionTable{byTok: make(map[string]int)}
}

func (t *subscriptionTable) add(s *Subscription) {
	t.byTok[s.Token] = len(t.order)
	t.order = append(t.order, s)
}

func (t *subscriptionTable) get(token string) (*Subscription, bool) {
	idx, ok := t.byTok[token]
	if !ok || idx >= len(t.order) || t.order[idx].Token != token {
		return nil, false
	}
	return t.order[idx], true
}

func (t *subscriptionTable) getBySubscriptionOrID(id string) (*Subscription, bool) {
	return t.get(id)
}

// remove deletes the subscription with token, preserving the relative
// order of everything else (§8 invariant 4).
func (t *subscriptionTable) remove(token string) bool {
	_, ok := t.byTok[token]
	if !ok {
		return false
	}
	kept := t.order[:0]
	for _, s := range t.order {
		if s.Token == token {
			continue
		}
		kept = append(kept, s)
	}
	t.order = kept
	delete(t.byTok, token)
	t.reindex()
	return true
}

func (t *subscriptionTable) reindex() {
	for i, s := range t.order {
		t.byTok[s.Token] = i
	}
}

// reset clears every subscription, used by Session.Flush (§3: sessions
// are reusable).
func (t *subscriptionTable) reset() {
	t.order = nil
	t.byTok = make(map[string]int)
}

// replay returns an iterator function over the tokens of the
// subscriptions live at the time replay() was called (§6: "replay() →
// iterator of (headers, context)"). Each call to the returned function
// yields the next entry by looking up the live record for the next
// token, so a
// subscription unsubscribed mid-iteration (not possible from a single
// goroutine mid-call, but kept honest for correctness) is skipped
// rather than replayed stale.
func (t *subscriptionTable) replay() func() (ReplayEntry, bool) {
	snapshot := make([]string, len(t.order))
	for i, s := range t.order {
		snapshot[i] = s.Token
	}
	i := 0
	return func() (ReplayEntry, bool) {
		for i < len(snapshot) {
			tok := snapshot[i]
			i++
			if s, ok := t.get(tok); ok {
				return ReplayEntry{
					Token:       s.Token,
					Destination: s.Destination,
					Headers:     s.Headers,
					AckMode:     s.AckMode,
					Handler:     s.Handler,
				}, true
			}
		}
		return ReplayEntry{}, false
	}
}
