package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/logging"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/server"
)

func main() {
	cfg := config.LoadOrDefault()

	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	srv := server.New(cfg, logger)

	k := srv.Kernel()
	_, root := k.Boot(cfg.Kernel.BootProcess)
	logger.Info("root process booted",
		zap.String("name", cfg.Kernel.BootProcess),
		zap.Uint64("tid", uint64(root.ID())))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The driver goroutine is the simulated core: it advances the virtual
	// clock and runs one workload step per tick on behalf of whichever
	// thread holds the core.
	drv := newDriver(k, srv.Gateway(), logger)
	drv.install(root, bootScript(drv))
	go drv.run(ctx, cfg.Kernel.TickInterval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
