// Package cli provides the backpack command-line client.
//
// It wires configuration, the persistent cache, the API client and the
// sync services into cobra commands that work online and offline. When the
// server cannot be reached during a change, the user is asked to switch to
// offline mode; queued changes are sent with `backpack sync`, or
// automatically by `backpack watch` and the interactive shell once the
// server answers again.
//
// Key commands:
//   - login / logout / status
//   - awards, entries, shares, account
//   - offline on|off, sync, load
//   - watch, shell
//
// Execute is the entry point used by cmd/backpack.
package cli
