/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/testbed"
)

func main() {
	configPath := os.Getenv("ANIMA_CONFIG")
	tb := testbed.NewTestGame(configPath)

	engine, err := engine.New(tb.Game)
	if err != nil {
		core.Fatal(nil, err)
	}

	// capture sigterm and other system call here
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := engine.Initialize(ctx); err != nil {
		core.Fatal(nil, err)
	}

	// run engine
	if err := engine.Run(ctx); err != nil {
		core.Fatal(nil, err)
	}

	if err := engine.Shutdown(); err != nil {
		core.Fatal(nil, err)
	}
}
