/*
Prisma renders a rotating colored cube, and optionally a heightmap
terrain, through Vulkan. Configuration is read from prisma.toml next to
the binary when present.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/prisma/engine"
	"github.com/spaghettifunk/prisma/engine/config"
)

func main() {
	cfg, err := config.Load("prisma.toml")
	if err != nil {
		panic(err)
	}

	app, err := engine.New(cfg)
	if err != nil {
		panic(err)
	}

	if err := app.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		_ = app.Shutdown()
	}()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
