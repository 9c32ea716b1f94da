package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Gunvolt24/kafka-runner/config"
	"github.com/Gunvolt24/kafka-runner/internal/app"
	"github.com/Gunvolt24/kafka-runner/internal/messaging"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// SIGINT/SIGTERM отменяют контекст; цикл потребления выходит на ближайшей проверке
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.Bootstrap(ctx, &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}

	runErr := a.Run(ctx)
	switch {
	case runErr == nil:
		a.Logger.Infof(ctx, "runner finished")
	case messaging.IsConsumerError(runErr):
		a.Logger.Errorf(ctx, "runner failed (consumer): %v", runErr)
	case messaging.IsProcessorError(runErr):
		a.Logger.Errorf(ctx, "runner failed (processor): %v", runErr)
	default:
		a.Logger.Errorf(ctx, "service failed: %v", runErr)
	}

	cleanup()
	if runErr != nil {
		os.Exit(1)
	}
}
