// Package isolate provides the execution substrate for the bridge: goja
// backed environments, each with an exclusive execution right, a FIFO
// inbox drained by a dedicated worker goroutine, and weak holders through
// which all cross-environment access flows.
//
// The package enforces two structural rules. First, code touching an
// environment's heap always runs under that environment's ExecutorLock,
// either on the worker (queued work) or on a caller that took the lock
// explicitly. Second, disposal never loses settlements: items queued
// against a disposed environment follow explicit drop rules, and items
// flagged RunEvenIfDisposed execute regardless, inline on the posting
// goroutine if need be.
package isolate
