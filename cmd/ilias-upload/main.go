package main

import (
	"context"
	"os"
	"os/signal"

	"ilias-uploader/cmd/ilias-upload/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	commands.ExecuteContext(ctx)
}
