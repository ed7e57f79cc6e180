package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// subprocessPipeline spawns a try-on worker bound to the weights directory and
// forwards requests to it over HTTP.
type subprocessPipeline struct {
	*workerClient

	cfg       LoadConfig
	publisher EventPublisher

	mu     sync.Mutex
	cmd    *exec.Cmd
	pid    int
	exited chan struct{}
	stderr *tailBuffer
}

// startSubprocess launches the worker and waits until it reports healthy.
func startSubprocess(ctx context.Context, cfg LoadConfig) (*subprocessPipeline, error) {
	if strings.TrimSpace(cfg.WorkerBin) == "" {
		return nil, errors.New("worker binary is empty")
	}
	bin, err := exec.LookPath(cfg.WorkerBin)
	if err != nil {
		return nil, fmt.Errorf("worker binary %q: %w", cfg.WorkerBin, err)
	}
	host := strings.TrimSpace(cfg.WorkerHost)
	if host == "" {
		host = defaultWorkerHost
	}
	var port int
	if cfg.WorkerPortStart > 0 && cfg.WorkerPortEnd >= cfg.WorkerPortStart {
		port, err = pickPortInRange(host, cfg.WorkerPortStart, cfg.WorkerPortEnd)
	} else {
		port, err = pickFreePort(host)
	}
	if err != nil {
		return nil, err
	}
	baseURL := "http://" + net.JoinHostPort(host, strconv.Itoa(port))

	args := []string{
		"--weights-dir", cfg.WeightsDir,
		"--host", host,
		"--port", strconv.Itoa(port),
	}
	args = append(args, cfg.WorkerExtraArgs...)

	pub := cfg.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	cmd := exec.Command(bin, args...)
	// Captured in-memory; the tail is included in startup errors.
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	sp := &subprocessPipeline{
		workerClient: newWorkerClient(baseURL, cfg.RequestTimeout, 5*time.Second),
		cfg:          cfg,
		publisher:    pub,
		cmd:          cmd,
		pid:          cmd.Process.Pid,
		exited:       make(chan struct{}),
		stderr:       stderr,
	}
	log.Printf("adapter=subprocess event=start pid=%d host=%s port=%d weights_dir=%q", sp.pid, host, port, cfg.WeightsDir)
	pub.Publish(Event{Name: "spawn_start", Fields: map[string]any{"pid": sp.pid, "host": host, "port": port}})

	// Early-exit watcher: surface non-zero exit before readiness
	waitErrCh := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		close(sp.exited)
		waitErrCh <- err
	}()

	if err := sp.waitReady(ctx, waitErrCh); err != nil {
		sp.kill()
		return nil, err
	}
	return sp, nil
}

// waitReady polls GET /health until success, early exit, timeout or ctx end.
func (sp *subprocessPipeline) waitReady(ctx context.Context, waitErrCh <-chan error) error {
	timeout := sp.cfg.StartTimeout
	if timeout <= 0 {
		timeout = defaultStartTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case werr := <-waitErrCh:
			tail := sp.stderr.String()
			sp.publisher.Publish(Event{Name: "spawn_exit", Fields: map[string]any{"pid": sp.pid, "before_ready": true}})
			if werr != nil {
				log.Printf("adapter=subprocess event=exit_early pid=%d err=%v", sp.pid, werr)
				return fmt.Errorf("worker exited early: %v; stderr tail: %s", werr, tail)
			}
			log.Printf("adapter=subprocess event=exit_clean pid=%d before_ready=1", sp.pid)
			return fmt.Errorf("worker exited before ready: %s; stderr tail: %s", sp.baseURL, tail)
		case <-deadline.C:
			log.Printf("adapter=subprocess event=timeout pid=%d", sp.pid)
			sp.publisher.Publish(Event{Name: "spawn_timeout", Fields: map[string]any{"pid": sp.pid}})
			return fmt.Errorf("worker not ready in %s: %s", timeout, sp.baseURL)
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			hctx, cancel := context.WithTimeout(ctx, 1*time.Second)
			err := sp.health(hctx)
			cancel()
			if err == nil {
				log.Printf("adapter=subprocess event=ready pid=%d url=%s", sp.pid, sp.baseURL)
				sp.publisher.Publish(Event{Name: "spawn_ready", Fields: map[string]any{"pid": sp.pid, "url": sp.baseURL}})
				return nil
			}
		}
	}
}

// PID returns the worker process id.
func (sp *subprocessPipeline) PID() int { return sp.pid }

// Close terminates the worker: SIGTERM first, kill after a grace period.
func (sp *subprocessPipeline) Close() error {
	_ = sp.workerClient.Close()
	sp.mu.Lock()
	cmd := sp.cmd
	sp.cmd = nil
	sp.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-sp.exited:
	case <-time.After(2 * time.Second):
		_ = cmd.Process.Kill()
		<-sp.exited
	}
	sp.publisher.Publish(Event{Name: "spawn_stop", Fields: map[string]any{"pid": sp.pid}})
	return nil
}

// kill is used on startup failure; the process may already be gone.
func (sp *subprocessPipeline) kill() {
	sp.mu.Lock()
	cmd := sp.cmd
	sp.cmd = nil
	sp.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
	<-sp.exited
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected addr: %s", l.Addr())
	}
	return addr.Port, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; t.max > 0 && over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
