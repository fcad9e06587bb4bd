package stomp

import (
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func drainReplay(it func() (ReplayEntry, bool)) []string {
	var tokens []string
	for {
		e, ok := it()
		if !ok {
			break
		}
		tokens = append(tokens, e.Token)
	}
	return tokens
}

func TestSubscriptionTableReplayPreservesInsertionOrder(t *testing.T) {
	st := newSubscriptionTable()
	st.add(&Subscription{Token: "a", Destination: "/queue/a"})
	st.add(&Subscription{Token: "b", Destination: "/queue/b"})
	st.add(&Subscription{Token: "c", Destination: "/queue/c"})

	assert.Check(t, is.DeepEqual([]string{"a", "b", "c"}, drainReplay(st.replay())))
}

func TestSubscriptionTableRemoveExcludesFromReplay(t *testing.T) {
	st := newSubscriptionTable()
	st.add(&Subscription{Token: "a"})
	st.add(&Subscription{Token: "b"})
	st.add(&Subscription{Token: "c"})
	st.remove("b")

	assert.Check(t, is.DeepEqual([]string{"a", "c"}, drainReplay(st.replay())))

	_, ok := st.get("b")
	assert.Check(t, !ok)
}

func TestSubscriptionTableResetClearsEverything(t *testing.T) {
	st := newSubscriptionTable()
	st.add(&Subscription{Token: "a"})
	st.reset()
	assert.Check(t, is.DeepEqual([]string{}, append([]string{}, drainReplay(st.replay())...)))
}

func TestSubscriptionTableGetAfterRemoveAndReAdd(t *testing.T) {
	st := newSubscriptionTable()
	st.add(&Subscription{Token: "a", Destination: "/queue/a"})
	st.remove("a")
	st.add(&Subscription{Token: "a", Destination: "/queue/a-v2"})

	sub, ok := st.get("a")
	assert.Check(t, ok)
	assert.Check(t, is.Equal("/queue/a-v2", sub.Destination))
}
