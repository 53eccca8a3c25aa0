// Package software is a host-memory implementation of the gpucore device
// contract.
//
// Resources are byte slices. Command lists record [Command] values and
// the queue executes them on Submit: barriers are checked against the state
// each resource is really in, copies and clears move bytes, and draws are
// counted but not rasterized. Anything the frame layer does wrong against
// the contract (a barrier whose Before state is stale, reuse of an in-flight
// list, a double release) is recorded as a violation instead of crashing.
//
// Fence completion can be held back with [Queue.HoldCompletion] to observe
// blocking waits, and object creation or presentation can be made to fail
// with [Device.FailNext] and [Device.FailPresent].
//
// The driver registers itself as "software" on import.
package software
