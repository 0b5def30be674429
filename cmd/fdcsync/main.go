package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/fdcsync/internal/server"
	"github.com/dmitrijs2005/fdcsync/internal/server/cli"
)

func main() {

	ctx, stop := server.SignalContext(context.Background())
	code := cli.Execute(ctx)
	stop()

	os.Exit(code)

}
