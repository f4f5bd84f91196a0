package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cocosip/go-j2k/cmd/j2kcodec/cmd"
)

var GitSHA = "NA"

func main() {
	ctx, cnc := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cnc()
	if err := cmd.NewRoot(ctx, GitSHA).Execute(); err != nil {
		os.Exit(1)
	}
}
