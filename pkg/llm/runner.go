package llm

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/modelyard/modelyard/pkg/device"
	"github.com/modelyard/modelyard/pkg/global"
	"github.com/modelyard/modelyard/pkg/util/console"
)

// Runner instantiates models by spawning a llama-server process with the
// tier's GPU layer budget. It implements device.Backend.
type Runner struct {
	// BinPath overrides the llama-server binary looked up on PATH.
	BinPath string

	// StartupTimeout bounds how long a spawned server may take to become
	// healthy before the attempt counts as a device failure.
	StartupTimeout time.Duration
}

func NewRunner() *Runner {
	return &Runner{
		StartupTimeout: global.ServerStartupWindow,
	}
}

func (r *Runner) binPath() string {
	if r.BinPath != "" {
		return r.BinPath
	}
	return "llama-server"
}

// Load spawns llama-server for the model at path on the given tier. On any
// failure the spawned process is killed before returning, so a failed
// attempt holds no device memory when the loader moves to the next tier.
func (r *Runner) Load(ctx context.Context, path string, tier device.Tier, opts device.Options) (device.Handle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat model: %w", err)
	}

	port, err := freePort()
	if err != nil {
		return nil, err
	}

	args := []string{
		"-m", path,
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(port),
		"--ctx-size", strconv.Itoa(opts.ContextLength),
		"--gpu-layers", strconv.Itoa(tier.GPULayers),
	}
	console.Debugf("Starting %s %v", r.binPath(), args)

	cmd := exec.Command(r.binPath(), args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", r.binPath(), err)
	}

	handle := &ServerHandle{
		cmd:    cmd,
		client: NewClient("http://127.0.0.1:" + strconv.Itoa(port)),
		tier:   tier,
		size:   info.Size(),
		opts:   opts,
		done:   make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		handle.exited.Store(true)
		close(handle.done)
	}()

	timeout := r.StartupTimeout
	if timeout == 0 {
		timeout = global.ServerStartupWindow
	}
	if err := handle.waitHealthy(ctx, timeout); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("llama-server on %s never became healthy: %w", tier.Name, err)
	}

	return handle, nil
}

// ServerHandle owns one llama-server process. Closing it terminates the
// process and with it whatever device memory the server held.
type ServerHandle struct {
	cmd    *exec.Cmd
	client *Client
	tier   device.Tier
	size   int64
	opts   device.Options

	done   chan struct{}
	exited atomic.Bool
}

func (h *ServerHandle) waitHealthy(ctx context.Context, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.done:
			return fmt.Errorf("process exited during startup")
		case <-deadline.C:
			return fmt.Errorf("timed out after %s", timeout)
		case <-tick.C:
			if err := h.client.Health(ctx); err == nil {
				return nil
			}
		}
	}
}

// Generate runs a completion against this handle's server, applying the
// handle's load-time sampling defaults where the request does not override.
func (h *ServerHandle) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := h.opts.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	topP := h.opts.TopP
	if opts.TopP != nil {
		topP = *opts.TopP
	}

	content, err := h.client.Complete(ctx, CompletionRequest{
		Prompt:      FormatPrompt(prompt),
		NPredict:    maxTokens,
		Temperature: temperature,
		TopP:        topP,
		Stream:      false,
	})
	if err != nil {
		return "", err
	}
	return TrimResponse(content), nil
}

func (h *ServerHandle) Alive() bool {
	return !h.exited.Load()
}

func (h *ServerHandle) SizeBytes() int64 {
	return h.size
}

func (h *ServerHandle) Tier() device.Tier {
	return h.tier
}

// Close terminates the server process, escalating to SIGKILL if it ignores
// the interrupt.
func (h *ServerHandle) Close() error {
	if h.exited.Load() {
		return nil
	}
	if err := h.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = h.cmd.Process.Kill()
	}
	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		_ = h.cmd.Process.Kill()
		<-h.done
	}
	return nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
