// Package http implements the read-only introspection API: live views of
// processes, threads, ports, the scheduler, and physical memory.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel"
)

// Handlers serves the introspection endpoints for one kernel.
type Handlers struct {
	kernel  *kernel.Kernel
	metrics *monitoring.Metrics
	version string
}

// NewHandlers creates the handler set.
func NewHandlers(k *kernel.Kernel, metrics *monitoring.Metrics, version string) *Handlers {
	return &Handlers{kernel: k, metrics: metrics, version: version}
}

// Root describes the service.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "nanoos-kernel",
		"version": h.version,
		"endpoints": []string{
			"/health",
			"/processes",
			"/threads",
			"/ports",
			"/scheduler",
			"/memory",
			"/metrics",
			"/metrics/json",
			"/stream",
		},
	})
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"objects": h.kernel.ObjectCount(),
	})
}

// ListProcesses returns every live process.
func (h *Handlers) ListProcesses(c *gin.Context) {
	procs := h.kernel.Processes()
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"processes": procs,
		"count":     len(procs),
	})
}

// ListThreads returns every thread in the registry, zombies included.
func (h *Handlers) ListThreads(c *gin.Context) {
	threads := h.kernel.Threads()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"threads": threads,
		"count":   len(threads),
	})
}

// ListPorts returns every live port.
func (h *Handlers) ListPorts(c *gin.Context) {
	ports := h.kernel.Ports()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ports":   ports,
		"count":   len(ports),
	})
}

// GetSchedulerStats returns scheduler counters and the running thread.
func (h *Handlers) GetSchedulerStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   h.kernel.SchedulerStats(),
	})
}

// GetMemoryStats returns frame allocator occupancy.
func (h *Handlers) GetMemoryStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   h.kernel.MemoryStats(),
	})
}

// GetMetricsJSON returns the mirrored counters as JSON, for clients that do
// not scrape Prometheus.
func (h *Handlers) GetMetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"metrics": h.metrics.GetSnapshot(),
	})
}
