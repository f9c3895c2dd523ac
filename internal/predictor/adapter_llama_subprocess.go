package predictor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// SpawnConfig configures the llama-server subprocess of the spawn backend.
type SpawnConfig struct {
	Bin  string // llama-server path; discovered when empty
	Host string // bind host, 127.0.0.1 when empty
	// ReadyTimeout bounds model loading in the child; 0 means 10m.
	ReadyTimeout time.Duration
	ExtraArgs    []string
}

// llamaSubprocessAdapter spawns a llama-server for the model file and talks
// to it like the server backend.
type llamaSubprocessAdapter struct {
	cfg SpawnConfig
	log zerolog.Logger
}

// NewLlamaSubprocessAdapter constructs a subprocess-backed adapter.
func NewLlamaSubprocessAdapter(cfg SpawnConfig, log zerolog.Logger) InferenceAdapter {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 10 * time.Minute
	}
	return &llamaSubprocessAdapter{cfg: cfg, log: log.With().Str("adapter", "llama_subprocess").Logger()}
}

// llamaSubprocessSession owns the child process.
type llamaSubprocessSession struct {
	*completionClient
	cmd      *exec.Cmd
	waitErr  chan error
	stopOnce sync.Once
	log      zerolog.Logger
}

func (a *llamaSubprocessAdapter) Start(modelPath string, params LoadParams) (InferSession, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("modelPath is empty")
	}
	bin := a.cfg.Bin
	if bin == "" {
		bin = discoverLlamaBin()
	}
	if bin == "" {
		return nil, ErrDependencyUnavailable("llama-server not found; set llama_bin")
	}
	port, err := pickFreePort(a.cfg.Host)
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s", net.JoinHostPort(a.cfg.Host, strconv.Itoa(port)))

	cmd := exec.Command(bin, spawnArgs(modelPath, a.cfg.Host, port, params, a.cfg.ExtraArgs)...)
	// stderr tail is reported when the child dies before it is ready
	stderr := &tailBuffer{max: stderrTailBytes}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, ErrDependencyUnavailable(fmt.Sprintf("start llama-server: %v", err))
	}
	pid := cmd.Process.Pid
	a.log.Info().Str("model", modelPath).Int("pid", pid).Str("url", baseURL).Msg("spawn start")

	s := &llamaSubprocessSession{
		completionClient: &completionClient{
			baseURL:    baseURL,
			httpClient: &http.Client{},
			log:        a.log,
		},
		cmd:     cmd,
		waitErr: make(chan error, 1),
		log:     a.log,
	}
	go func() { s.waitErr <- cmd.Wait() }()

	if err := s.waitReady(a.cfg.ReadyTimeout, stderr); err != nil {
		_ = s.Close()
		return nil, err
	}
	a.log.Info().Int("pid", pid).Str("url", baseURL).Msg("spawn ready")
	return s, nil
}

const stderrTailBytes = 4096

// tailBuffer keeps only the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		return len(p), nil
	}
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

func spawnArgs(modelPath, host string, port int, params LoadParams, extra []string) []string {
	args := []string{
		"-m", modelPath,
		"--host", host,
		"--port", strconv.Itoa(port),
	}
	if params.CtxSize > 0 {
		args = append(args, "-c", strconv.Itoa(params.CtxSize))
	}
	if params.GPULayers > 0 {
		args = append(args, "-ngl", strconv.Itoa(params.GPULayers))
	}
	if params.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(params.Threads))
	}
	return append(args, extra...)
}

// waitReady polls /health until the child has loaded the model, exits, or
// the deadline passes.
func (s *llamaSubprocessSession) waitReady(timeout time.Duration, stderr *tailBuffer) error {
	deadline := time.Now().Add(timeout)
	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("llama-server not ready in %s: %s", timeout, s.baseURL)
		}
		select {
		case werr := <-s.waitErr:
			// re-arm so Close does not block
			s.waitErr <- werr
			tail := stderr.String()
			if werr == nil {
				werr = errors.New("exit status 0")
			}
			return fmt.Errorf("llama-server exited early: %v; stderr tail: %s", werr, tail)
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := s.health(ctx)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (s *llamaSubprocessSession) Tokenize(ctx context.Context, text string) (int, error) {
	return s.tokenize(ctx, text)
}

func (s *llamaSubprocessSession) Generate(ctx context.Context, prompt string, params SampleParams, onToken func(string) error) (FinalResult, error) {
	return s.complete(ctx, "", prompt, params, onToken)
}

// PID of the child, reported by /status.
func (s *llamaSubprocessSession) PID() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Close terminates the child: SIGTERM first, then kill after 2s.
func (s *llamaSubprocessSession) Close() error {
	s.stopOnce.Do(func() {
		if s.cmd == nil || s.cmd.Process == nil {
			return
		}
		_ = s.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-s.waitErr:
		case <-time.After(2 * time.Second):
			_ = s.cmd.Process.Kill()
			<-s.waitErr
		}
		s.log.Info().Int("pid", s.cmd.Process.Pid).Msg("spawn stop")
	})
	return nil
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// discoverLlamaBin looks for llama-server in common install locations and PATH.
func discoverLlamaBin() string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, "apps", "llama.cpp", "build", "bin", "llama-server"),
		"/usr/local/bin/llama-server",
		"/opt/homebrew/bin/llama-server",
	}
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	if lp, err := exec.LookPath("llama-server"); err == nil {
		return lp
	}
	return ""
}
