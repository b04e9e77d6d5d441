// Package mediajob drives long-running media jobs executed asynchronously by
// a remote engine: provision a named configuration, submit, poll until a
// terminal status, follow the output manifest chain in object storage, and
// materialize the result.
//
// A job runs as one goroutine from RunJob to return. Nothing is retried
// inside the package; every failure surfaces as a typed error (see
// errors.go) so the caller can decide whether to resubmit. The only shared
// state between concurrent jobs is the Provisioner's configuration cache.
//
// Cancelling the context passed to RunJob or PollUntilTerminal stops local
// polling only. The remote job is not cancelled and may keep running and
// writing output.
package mediajob
