// Package errors enumerates the sentinel error values returned by the
// referenda engine. Callers should compare against these with errors.Is
// rather than matching on message text.
package errors

import "errors"

var (
	// ErrNotOngoing is returned when an operation requires a referendum in
	// the Ongoing state but the stored record is terminal or missing.
	ErrNotOngoing = errors.New("assembly: referendum not ongoing")
	// ErrBadReferendum is returned when a referendum index is unknown.
	ErrBadReferendum = errors.New("assembly: unknown referendum")
	// ErrHasDeposit is returned when a decision deposit has already been placed.
	ErrHasDeposit = errors.New("assembly: decision deposit already placed")
	// ErrNoDeposit is returned when a refund is requested but no deposit is on record.
	ErrNoDeposit = errors.New("assembly: no deposit on record")
	// ErrUnfinished is returned when a decision deposit refund is requested
	// while the referendum is still ongoing.
	ErrUnfinished = errors.New("assembly: referendum not finished")
	// ErrBadStatus is returned when a submission deposit refund is requested
	// from a status that never retains it (Killed) or while the referendum
	// is still Ongoing.
	ErrBadStatus = errors.New("assembly: referendum has no refundable submission deposit")
	// ErrNoPermission is returned on a signer mismatch for metadata updates.
	ErrNoPermission = errors.New("assembly: signer lacks permission")
	// ErrNoTrack is returned when an origin cannot be classified into a track.
	ErrNoTrack = errors.New("assembly: origin has no matching track")
	// ErrBadTrack is returned when a track identifier does not exist.
	ErrBadTrack = errors.New("assembly: unknown track")
	// ErrFull names a track queue at capacity whose candidate does not
	// exceed the current minimum. queue.Track.Insert reports that case with
	// a false result; no function in this module returns ErrFull.
	ErrFull = errors.New("assembly: track queue full")
	// ErrQueueEmpty names a drained track queue. No function in this module
	// returns it; an empty queue is reported by a false result.
	ErrQueueEmpty = errors.New("assembly: track queue empty")
	// ErrPreimageNotExist is returned when a referenced preimage hash is unknown.
	ErrPreimageNotExist = errors.New("assembly: preimage does not exist")
	// ErrPreimageStoredWithDifferentLength is returned when a submitted
	// proposal's declared length disagrees with the stored preimage length.
	ErrPreimageStoredWithDifferentLength = errors.New("assembly: preimage stored with different length")
	// ErrNothingToDo is returned when a nudge is requested on a terminal record.
	ErrNothingToDo = errors.New("assembly: nothing to do")
	// ErrInsufficientFunds is returned by a Currency implementation that
	// cannot reserve the requested amount.
	ErrInsufficientFunds = errors.New("assembly: insufficient funds")
	// ErrStateNotConfigured is returned when an engine method is invoked
	// before SetState has wired a backing store.
	ErrStateNotConfigured = errors.New("assembly: store not configured")
)
