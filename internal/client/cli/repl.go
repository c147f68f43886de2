package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/townsquare/internal/client/client"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. App satisfies it.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error
	Avatar(ctx context.Context, path string) error
	Logout(ctx context.Context) error
	Touch(ctx context.Context) error
}

// runREPL reads one command per line until EOF, "exit" or "quit".
//
//	Not logged in: help, register, login, exit | quit
//	Logged in:     help, whoami, refresh, avatar <file>, logout, exit | quit
//
// Every command issued while logged in counts as activity and may extend
// the session (see Touch). Command errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("ts%s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		if a.isLoggedIn() {
			if err := a.Touch(ctx); err != nil && !errors.Is(err, client.ErrUnavailable) {
				report(err)
			}
		}

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, refresh, avatar <file>, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "whoami":
			err = a.WhoAmI(ctx)

		case "refresh":
			err = a.Refresh(ctx)

		case "avatar":
			if len(args) == 0 {
				printlnFn("Usage: avatar <file>")
				continue
			}
			err = a.Avatar(ctx, args[0])

		case "logout":
			err = a.Logout(ctx)

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			report(err)
		}
	}
}

func report(err error) {
	switch {
	case errors.Is(err, client.ErrNotLoggedIn):
		printlnFn("You are not logged in")
	case errors.Is(err, client.ErrUnavailable):
		printlnFn("Server unavailable, try again later")
	default:
		printlnFn("Error:", err)
	}
}
