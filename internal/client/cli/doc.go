// Package cli provides the interactive workledger command-line client.
//
// The REPL edits the local notebook and drives the sync session: creating
// or entering a sync id, connecting, syncing on demand and in the
// background, switching relays and exporting encrypted backups.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartSyncLoop, and runREPL for details.
package cli
