// Command switchstack controls rooms and switches from the terminal.
//
// Usage:
//
//	switchstack [--config config.yaml] <command> [args]
//
// Commands:
//
//	login, register, logout  - session management
//	rooms                    - list, add, update, delete and reorder rooms
//	switches                 - update and reorder switches
//	toggle                   - flip a switch over the real-time connection
//	users                    - manage who can access a room
//	watch                    - stream live switch state until interrupted
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"switchstack/cmd/switchstack/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
