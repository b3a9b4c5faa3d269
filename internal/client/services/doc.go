// Package services implements the client use cases on top of the API
// client and the state store.
//
// Every entity mutation goes through Orchestrator.mutate, which calls the
// server right away when online and falls back to a local, dirty-marked
// change when offline. Reconcile replays those changes once the server is
// reachable again. Loader sequences the startup fetches and Session covers
// login, logout and reauthorization.
package services
