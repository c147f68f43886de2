package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/townsquare/internal/client/client"
)

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// restore picks up the session saved by an earlier run. An unreachable
// server keeps the local session so the keep-alive can retry later.
func (a *App) restore(ctx context.Context) {
	s, err := a.authService.WhoAmI(ctx)
	switch {
	case err == nil:
		a.setUser(s.Username)
	case errors.Is(err, client.ErrNotLoggedIn):
	case errors.Is(err, client.ErrSessionExpired):
		printlnFn("Saved session has expired, please log in again")
	default:
		a.log.Warn(ctx, "session check failed", "error", err)
	}
}

// Root blocks in the REPL reading from the app's input.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to townsquare CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}
