// Package stream consumes the gateway's server-sent-events chat
// endpoint. The session core never imports this package; it only sees
// the chat messages a collected exchange produces, which keeps the
// transport swappable behind the event contract.
package stream
