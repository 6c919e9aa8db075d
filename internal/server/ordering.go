package server

import (
	"slices"
	"sort"

	"github.com/chitchat-im/chitchat/internal/types"
)

// OrderConversations returns a new slice sorted online-first, then by
// unread count descending. The sort is stable, so entries that tie keep
// their original relative order; the input is not modified.
func OrderConversations(convs []types.Conversation) []types.Conversation {
	ordered := slices.Clone(convs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Online != ordered[j].Online {
			return ordered[i].Online
		}
		return ordered[i].Unread > ordered[j].Unread
	})

	return ordered
}
