// Package unread tracks per-viewer unread message counts keyed by
// conversation partner. Counts are incremented when a message is delivered
// and cleared when the viewer opens the conversation; they never go
// negative.
package unread

type Store interface {
	// Incr adds one to viewer's unread count for partner, creating the
	// counter at zero first if it does not exist.
	Incr(viewerId, partnerId int) error
	// Clear resets viewer's unread count for partner to zero.
	Clear(viewerId, partnerId int) error
	// Counts returns all non-zero unread counts for viewer.
	Counts(viewerId int) (map[int]int, error)
}
