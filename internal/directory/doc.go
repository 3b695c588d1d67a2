// Package directory maintains the conversation list for one gateway.
//
// # Cache Discipline
//
// The directory is eventually consistent with the gateway: Refresh
// replaces the cache wholesale, and Rename/Remove touch it only after
// the gateway confirms the mutation with a 2xx. There is no optimistic
// update anywhere; a failed call leaves the cache byte-for-byte as it
// was, so the user can retry against unchanged state.
//
// # Mutation Guard
//
// At most one rename or delete runs per conversation ID at a time.
// A second call for the same ID fails fast with ErrMutationInFlight
// while mutations on other IDs proceed normally.
//
// # Open Conversation Cascade
//
// The session controller registers the currently open conversation via
// SetOpenConversation. When that conversation is deleted through the
// directory, the OnRemoved callback fires so the session can fall back
// to a fresh ephemeral chat instead of pointing at a ghost.
package directory
