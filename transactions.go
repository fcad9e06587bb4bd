package stomp

// transactionTable tracks identifiers of transactions currently open
// within a session (§3: created on BEGIN, destroyed on COMMIT/ABORT,
// unique within an active session).
type transactionTable struct {
	open map[string]bool
}

func newTransactionTable() *transactionTable {
	return &transactionTable{open: make(map[string]bool)}
}

func (t *transactionTable) begin(id string) error {
	if t.open[id] {
		return newError(ProtocolError, "transaction %q already open", id)
	}
	t.open[id] = true
	return nil
}

func (t *transactionTable) end(id string) error {
	if !t.open[id] {
		return newError(ProtocolError, "transaction %q is not open", id)
	}
	delete(t.open, id)
	return nil
}

func (t *transactionTable) isOpen(id string) bool {
	return t.open[id]
}

func (t *transactionTable) reset() {
	t.open = make(map[string]bool)
}
