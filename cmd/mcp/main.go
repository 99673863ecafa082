// File: cmd/mcp/main.go
// Container entrypoint: always serves, configured through MCP_TRANSPORT,
// MCP_HEADLESS, PORT and WEBNAV_* variables.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/webnav-mcp/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := append([]string{"serve"}, os.Args[1:]...)
	if err := cmd.ExecuteArgs(ctx, args); err != nil {
		stop()
		os.Exit(1)
	}
}
