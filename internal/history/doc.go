// Package history hydrates chat transcripts from the gateway.
//
// A load is attempted only for server-owned conversations while
// persistence is on and a service URL is configured; anything else is a
// structural skip that returns no messages and makes no network call.
// Fetched records are normalized into the chat message model: missing
// timestamps take the load time, duplicate tool steps collapse to the
// first occurrence per tool call id, and annotation-derived extras
// (knowledge sources, tool data) are synthesized only when the record
// actually carried an annotation.
package history
