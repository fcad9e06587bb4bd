// Package stomp implements the protocol core of a STOMP 1.0/1.1/1.2
// client: frame representation and wire codec, a stateless per-command
// builder/validator layer, and an I/O-free session state machine.
//
// The core is single-threaded and never touches a socket, a thread, or
// a timer: a Parser turns bytes into Frames, the commands layer turns
// typed requests into Frames (and server Frames into typed records),
// and a Session ties the two together with subscription, transaction,
// receipt and heart-beat bookkeeping. A surrounding client supplies the
// transport, the clock, and any concurrency.
//
// Package failover implements the companion broker-iteration policy,
// parsing `failover:(...)` URIs into a broker list and reconnect
// schedule.
package stomp
