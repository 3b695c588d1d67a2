// Package session owns the live chat session against one gateway.
//
// # States
//
// The session moves between four explicit states:
//
//	Disconnected -> Connecting -> Connected
//	                     |
//	                     v
//	                   Error (previous identity retained)
//
// Discovery outcomes drive the transitions; nothing is inferred from
// whether an identity pointer happens to be nil.
//
// # Conversation Identity
//
// The session is always bound to exactly one ConversationRef. Ephemeral
// refs are locally minted and never appear in gateway requests; server
// refs name persisted chats. New-chat, a persistence switch, discovery
// completion and config clearing each mint a fresh ephemeral ref.
// When a persisted exchange announces its gateway-assigned id, the
// session adopts it in place, keeping the live transcript.
//
// # Hydration and Staleness
//
// Selecting a server conversation launches an asynchronous history
// load stamped with a generation counter. A result is applied only if
// its generation is still current and the session is still bound to the
// same ref; anything else is discarded, not cancelled. Rapid selection
// switches therefore settle on the transcript of the conversation the
// user actually ended on.
//
// # Merge Policy
//
// Messages renders hydrated history until the first live message
// arrives. From then on MergeReplace (default) shows the live exchange
// alone, while MergeAppend keeps history beneath it, de-duplicated by
// message id with live winning.
package session
