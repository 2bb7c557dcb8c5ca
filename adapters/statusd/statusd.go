// Package statusd is a small HTTP introspection surface over a set of pty
// children: it reports their status, window size and echo setting, and
// lets an operator signal or terminate them.
package statusd

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/zhiburt/ptyprocess"
)

// Registry tracks live processes by pid.
type Registry struct {
	mu    sync.RWMutex
	procs map[int]*ptyprocess.PtyProcess
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{procs: make(map[int]*ptyprocess.PtyProcess)}
}

// Add registers a process under its pid.
func (r *Registry) Add(proc *ptyprocess.PtyProcess) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[proc.Pid()] = proc
}

// Remove drops a process from the registry.
func (r *Registry) Remove(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.procs, pid)
}

// Get returns the process registered under pid.
func (r *Registry) Get(pid int) (*ptyprocess.PtyProcess, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procs[pid]
	return p, ok
}

// Pids returns the registered pids.
func (r *Registry) Pids() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pids := make([]int, 0, len(r.procs))
	for pid := range r.procs {
		pids = append(pids, pid)
	}
	return pids
}

// ProcessResponse is the JSON rendering of one child's state.
type ProcessResponse struct {
	Pid      int    `json:"pid"`
	Status   string `json:"status"`
	ExitCode *int   `json:"exitCode,omitempty"`
	Signal   *int   `json:"signal,omitempty"`
	Rows     uint16 `json:"rows"`
	Cols     uint16 `json:"cols"`
	Echo     bool   `json:"echo"`
}

// SignalRequest is the body for POST /processes/:pid/signal.
type SignalRequest struct {
	Signal int `json:"signal" binding:"required"`
}

// ExitRequest is the body for POST /processes/:pid/exit.
type ExitRequest struct {
	Force bool `json:"force"`
}

// Handler serves the introspection API over a registry.
type Handler struct {
	registry *Registry
}

// NewHandler creates a Handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes mounts the API on a router group.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/processes", h.listProcesses)
	r.GET("/processes/:pid", h.getProcess)
	r.POST("/processes/:pid/signal", h.signalProcess)
	r.POST("/processes/:pid/exit", h.exitProcess)
}

// NewRouter builds a gin engine with the API and a health endpoint.
func NewRouter(registry *Registry) *gin.Engine {
	r := gin.Default()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	NewHandler(registry).RegisterRoutes(r)
	return r
}

func (h *Handler) listProcesses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pids": h.registry.Pids()})
}

func (h *Handler) getProcess(c *gin.Context) {
	proc, ok := h.lookup(c)
	if !ok {
		return
	}

	st, err := proc.Status()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := ProcessResponse{
		Pid:    proc.Pid(),
		Status: st.Kind.String(),
	}
	if st.Kind == ptyprocess.StatusExited {
		code := st.ExitCode
		resp.ExitCode = &code
	}
	if st.Kind == ptyprocess.StatusSignaled || st.Kind == ptyprocess.StatusStopped {
		sig := int(st.Signal)
		resp.Signal = &sig
	}

	// Terminal details are best-effort once the child is gone.
	if ws, err := proc.WindowSize(); err == nil {
		resp.Rows = ws.Rows
		resp.Cols = ws.Cols
	}
	if echo, err := proc.IsEcho(); err == nil {
		resp.Echo = echo
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) signalProcess(c *gin.Context) {
	proc, ok := h.lookup(c)
	if !ok {
		return
	}

	var req SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := proc.Kill(syscall.Signal(req.Signal)); err != nil {
		if errors.Is(err, ptyprocess.ErrNoSuchProcess) {
			c.JSON(http.StatusGone, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) exitProcess(c *gin.Context) {
	proc, ok := h.lookup(c)
	if !ok {
		return
	}

	var req ExitRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reaped, err := proc.Exit(req.Force)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reaped": reaped})
}

func (h *Handler) lookup(c *gin.Context) (*ptyprocess.PtyProcess, bool) {
	pid, err := strconv.Atoi(c.Param("pid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pid"})
		return nil, false
	}
	proc, ok := h.registry.Get(pid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "process not found"})
		return nil, false
	}
	return proc, true
}
