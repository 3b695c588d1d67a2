// Package chat defines the message model shared by the session controller,
// the history loader, and the live stream adapter.
package chat
