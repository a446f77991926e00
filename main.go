// gdbstub - a GDB remote serial protocol stub serving a synthetic target.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gdbstub/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gdbstub: %v\n", err)
		os.Exit(1)
	}
}
