// Package main provides the narrate CLI.
//
// Usage:
//
//	narrate -s KEY [-i test.pptx] [-o out.pptx] [-v en-GB-RyanNeural]
//	narrate voices [--locale en-GB] [--json]
//	narrate check
//
// Every flag can also be set through the environment or a .env file;
// see internal/config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lexiqai/deck-narrator/cmd/narrate/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
