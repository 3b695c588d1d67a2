// Package agentapi is the HTTP client for a Remote Agent Gateway.
//
// # Endpoints
//
// The gateway contract the console consumes:
//
//	GET    /api/chats/list                          conversation directory
//	GET    /api/chat/{chatID}/messages              transcript for one chat
//	PATCH  /api/chats/{chatID}                      rename ({"title": ...})
//	DELETE /api/chat/{chatID}/delete                remove a chat
//	POST   /api/chat/messages/{messageID}/feedback  like/dislike a message
//
// The streaming endpoint POST /api/chat/stream is deliberately absent
// here; the stream package owns it.
//
// # Response Shapes
//
// Deployed gateways answer collection endpoints in three shapes: a
// success envelope ({"success": true, "chats": [...]}), a bare JSON
// array, or a {"data": [...]} wrapper. decodeRecords accepts all three
// so callers never branch on shape. Record fields are read in both
// snake_case and camelCase spellings for the same reason.
//
// # Errors
//
// Non-2xx responses surface as *StatusError carrying the code and a
// bounded slice of the body. Transport and parse failures are wrapped
// with %w. Every error is recoverable; nothing here panics or retries.
package agentapi
