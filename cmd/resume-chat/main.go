package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/resume-chat/cmd/resume-chat/cmds"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cmds.NewRootCommand(cmds.NewApp())
	err := rootCmd.ExecuteContext(ctx)
	cobra.CheckErr(err)
}
