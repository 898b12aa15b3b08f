// Package server implements the TCP front-end: a fixed binary framing
// multiplexing multiple named databases over a single listener.
//
// Each request starts with a 5-byte header [cmd:u8][meta:u32 LE]
// followed by a command-determined payload. A connection selects a
// database once (SELECT_DB) and subsequent commands operate on it. The
// engine performs no internal locking, so the server serializes access
// per database; connections are otherwise handled concurrently.
package server
