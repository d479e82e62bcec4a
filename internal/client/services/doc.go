// Package services holds the application services of the workledger
// client: the local entry service, the push/pull protocol, the merge
// engine and the sync session that orchestrates them.
package services
