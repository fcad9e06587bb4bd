package stomp

// Receipts tracks outstanding receipt ids in insertion order (§3, §6).
// It never blocks: spec §5 forbids suspension points inside the core,
// so "wait" here is the non-blocking predicate described in §4.5 —
// built on top by a caller that polls or wires it to a channel/future
// of its own.
type Receipts struct {
	order   []string
	command map[string]string
	done    map[string]bool
}

// NewReceipts returns an empty receipt tracker.
func NewReceipts() *Receipts {
	return &Receipts{command: make(map[string]string), done: make(map[string]bool)}
}

// Track records that a frame for command was sent carrying receipt id.
func (r *Receipts) Track(id, command string) {
	if _, exists := r.command[id]; exists {
		return
	}
	r.order = append(r.order, id)
	r.command[id] = command
	r.done[id] = false
}

// Resolve marks id as satisfied by an incoming RECEIPT frame. It
// reports whether id was being tracked.
func (r *Receipts) Resolve(id string) bool {
	if _, ok := r.command[id]; !ok {
		return false
	}
	r.done[id] = true
	return true
}

// Pending reports whether id is tracked and not yet resolved.
func (r *Receipts) Pending(id string) bool {
	cmd, tracked := r.command[id]
	_ = cmd
	return tracked && !r.done[id]
}

// Wait is the non-blocking predicate named in §6: it reports whether
// id has been resolved. It returns false both for "still pending" and
// for "never tracked" — callers that need to distinguish those use
// Pending.
func (r *Receipts) Wait(id string) bool {
	return r.done[id]
}

// Outstanding returns the ids still pending, in the order they were
// tracked.
func (r *Receipts) Outstanding() []string {
	var out []string
	for _, id := range r.order {
		if !r.done[id] {
			out = append(out, id)
		}
	}
	return out
}

// Clear drops every tracked receipt. Used when a session terminates
// (§3: receipts are destroyed when "the session terminates").
func (r *Receipts) Clear() {
	r.order = nil
	r.command = make(map[string]string)
	r.done = make(map[string]bool)
}
