// Package server implements the collabchat routing core.
//
// The implementation is organized into specialized files for configuration,
// rooms and their directory, the connection registry, clients, message
// dispatch, and the HTTP/WebSocket surface to keep the codebase maintainable
// and testable as the project grows.
package server
