// Package discovery resolves a service URL into an agent identity.
//
// # Probe Order
//
// Given a base URL, the resolver tries, in order:
//
//  1. {base}/.well-known/agent-config
//  2. {base}/api/agent-config
//  3. {base}
//
// Probes are sequential with a 5-second timeout each. The first response
// that is 2xx, parses as a JSON object, and names an agent (nonempty
// "name" or "agent_id") wins and probing stops. A response failing any
// of those checks falls through to the next candidate the same way a
// connection error does.
//
// # URL Normalization
//
// Bare host[:port] inputs get http:// for loopback hosts (localhost,
// 127.0.0.1, ::1, 0.0.0.0) and https:// for everything else. Trailing
// slashes are trimmed before candidates are built.
//
// # Identity
//
// The resolved Identity is a value: never mutated after Resolve returns.
// Missing fields take documented defaults (name falls back to the agent
// id, version to "0.0.0"); unrecognized config fields pass through in
// Metadata.
package discovery
