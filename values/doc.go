/*
Package values implements context-independent value and error transport.

# Overview

Environments never share heap objects. A result or a thrown error crossing
the bridge is first externalized into an ExternalCopy: a self-contained
representation that holds no reference to the heap it came from. The copy is
materialized again inside whichever environment is entered at delivery time.

Plain values are deep-copied by serialization (sonic JSON); payloads above a
configurable threshold are gzip-compressed. Errors keep their name, message
and throw-site stack.

# Stack chaining

A failure that crosses the bridge carries two stacks: where it was thrown and
where the call was made. Capture records the current frames, Attach sets a
stack on an error, and Chain appends one to an existing chain, so a rejection
always reads throw site first, invocation site second.
*/
package values
