// Package client contains the outward-facing building blocks of the
// workledger client.
//
// # Relay
//
// Relay is the transport contract with the untrusted sync relay; HTTPRelay
// implements it over JSON/HTTP. Every call receives an Endpoint carrying
// the relay base URL and the bearer token derived from the sync identity.
// The relay only ever sees SyncEntry envelopes.
//
// # Error Handling
//
// Transport failures, timeouts and 5xx answers wrap common.ErrNetwork and
// are retryable by the caller. 401/403 wrap common.ErrAuthentication.
// Other unexpected answers are returned as *StatusError.
//
// # Local database
//
// InitDatabase opens the SQLite file and applies the embedded goose
// migrations; NewRepositories wires the entry and settings stores on top.
package client
