package main

import (
	"os"
	"os/signal"
	"syscall"

	"minerva/internal/bootstrap"
)

func main() {
	container := bootstrap.NewContainer()
	container.MustInit()

	if err := container.Start(); err != nil {
		container.Log.Fatalf("Failed to start: %v", err)
	}

	waitForShutdown(container)
}

// waitForShutdown blocks until a termination signal arrives or the container
// cancels its own context (fatal HTTP error), then shuts everything down.
func waitForShutdown(c *bootstrap.Container) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		c.Log.Infow("Received shutdown signal", "signal", sig.String())
	case <-c.Context.Done():
		c.Log.Info("Shutting down...")
	}

	c.Shutdown()
}
