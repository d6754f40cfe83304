// Package server implements the HTTP and WebSocket front end of the chat
// engine.
//
// Callers join a room, submit lines and poll for news over short HTTP
// requests bound to a session cookie, or over a WebSocket carrying the same
// request/response exchange. Replies are encoded as "<TAG>:<payload>\nend\n"
// frames.
package server
