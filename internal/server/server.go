package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/NanoOS/kernel/internal/api/http"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/api/middleware"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/api/ws"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/syscall"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/logging"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// Server wraps the kernel, its syscall gateway, and the HTTP surface.
type Server struct {
	cfg     *config.Config
	log     *logging.Logger
	kernel  *kernel.Kernel
	gateway *syscall.Gateway
	metrics *monitoring.Metrics
	router  *gin.Engine
	httpSrv *http.Server
}

// New builds the service: kernel, gateway, metrics, and routes. The kernel
// is not booted; the caller boots it and drives ticks.
func New(cfg *config.Config, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}

	metrics := monitoring.NewMetrics()

	k := kernel.New(kernel.Config{
		FrameCount:     cfg.Kernel.Frames,
		HandleCapacity: cfg.Kernel.HandleCapacity,
		Quantum:        cfg.Kernel.Quantum,
	}, log, metrics)
	gateway := syscall.New(k, log, metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	tracer := tracing.New("kernel", log.Logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(k, metrics, Version)
	stream := ws.NewStream(k, log, metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/processes", handlers.ListProcesses)
	router.GET("/threads", handlers.ListThreads)
	router.GET("/ports", handlers.ListPorts)
	router.GET("/scheduler", handlers.GetSchedulerStats)
	router.GET("/memory", handlers.GetMemoryStats)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", handlers.GetMetricsJSON)
	router.GET("/stream", stream.HandleConnection)

	return &Server{
		cfg:     cfg,
		log:     log,
		kernel:  k,
		gateway: gateway,
		metrics: metrics,
		router:  router,
	}
}

// Kernel returns the kernel instance.
func (s *Server) Kernel() *kernel.Kernel { return s.kernel }

// Gateway returns the syscall gateway.
func (s *Server) Gateway() *syscall.Gateway { return s.gateway }

// Run serves HTTP until the context is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Sync()
	return nil
}
