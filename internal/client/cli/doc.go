// Package cli is the interactive townsquare client.
//
// NewApp opens the local session store, builds the API client and the auth
// service; App.Run restores a saved session, starts the hourly keep-alive
// and blocks in the REPL. Commands issued while logged in also extend the
// session, at most once per activity throttle.
package cli
