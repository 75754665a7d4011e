package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"modelgate/pkg/types"
)

// SubprocessConfig configures the adapter that spawns one OpenAI-compatible
// server per model.
type SubprocessConfig struct {
	// Command is the executable plus fixed leading arguments, whitespace separated.
	Command string
	// Args is the argument template. Placeholders: {model} (artifact path),
	// {id} (model id), {host}, {port}.
	Args string
	Host string
	// PortBase: the backend in registry slot i listens on PortBase+1+i.
	PortBase         int
	MaxReadyAttempts int
	ReadyInterval    time.Duration
	// CheckTimeout bounds a single readiness check.
	CheckTimeout time.Duration
	// StopTimeout is how long Release waits after SIGTERM before killing.
	StopTimeout time.Duration
	// Env is appended to the gateway's own environment.
	Env []string
}

func (c SubprocessConfig) withDefaults() SubprocessConfig {
	if strings.TrimSpace(c.Host) == "" {
		c.Host = "127.0.0.1"
	}
	if c.MaxReadyAttempts <= 0 {
		c.MaxReadyAttempts = 100
	}
	if c.ReadyInterval <= 0 {
		c.ReadyInterval = 100 * time.Millisecond
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = time.Second
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 5 * time.Second
	}
	return c
}

// subprocessAdapter spawns and supervises backend server processes.
type subprocessAdapter struct {
	cfg       SubprocessConfig
	client    *openAIClient
	log       zerolog.Logger
	publisher EventPublisher
}

// NewSubprocessAdapter constructs the process-per-model adapter.
func NewSubprocessAdapter(cfg SubprocessConfig, log zerolog.Logger, pub EventPublisher) Adapter {
	if pub == nil {
		pub = discardEvents{}
	}
	return &subprocessAdapter{
		cfg:       cfg.withDefaults(),
		client:    newOpenAIClient(),
		log:       log.With().Str("adapter", "subprocess").Logger(),
		publisher: pub,
	}
}

// portFor returns the fixed port for a registry slot.
func (a *subprocessAdapter) portFor(slot int) int { return a.cfg.PortBase + 1 + slot }

// argv builds the command line for desc on port.
func (a *subprocessAdapter) argv(desc types.Model, port int) ([]string, error) {
	cmd := strings.Fields(a.cfg.Command)
	if len(cmd) == 0 {
		return nil, errors.New("backend command is empty")
	}
	r := strings.NewReplacer(
		"{model}", desc.Path,
		"{id}", desc.ID,
		"{host}", a.cfg.Host,
		"{port}", strconv.Itoa(port),
	)
	for _, tok := range strings.Fields(a.cfg.Args) {
		cmd = append(cmd, r.Replace(tok))
	}
	return cmd, nil
}

func (a *subprocessAdapter) Acquire(ctx context.Context, desc types.Model, slot int) (Resource, error) {
	port := a.portFor(slot)
	argv, err := a.argv(desc, port)
	if err != nil {
		return nil, &LoadError{Model: desc.ID, Err: err}
	}
	baseURL := fmt.Sprintf("http://%s:%d", a.cfg.Host, port)
	log := a.log.With().Str("model", desc.ID).Int("port", port).Logger()

	cmd := exec.Command(argv[0], argv[1:]...)
	if len(a.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), a.cfg.Env...)
	}
	// Output is kept in memory; the tail is included on failure.
	tail := newTailBuffer(4096)
	cmd.Stdout = tail
	cmd.Stderr = tail
	// Bounds Wait when a grandchild keeps the output pipes open.
	cmd.WaitDelay = a.cfg.StopTimeout
	if err := cmd.Start(); err != nil {
		return nil, &LoadError{Model: desc.ID, Err: fmt.Errorf("start backend: %w", err)}
	}
	p := &process{cmd: cmd, exited: make(chan struct{})}
	go p.wait()
	pid := cmd.Process.Pid
	log.Info().Int("pid", pid).Strs("argv", argv).Msg("adapter event=spawn_start")
	a.publisher.Publish(Event{Name: EventSpawnStart, ModelID: desc.ID, Fields: map[string]any{"pid": pid, "port": port}})

	for attempt := 1; attempt <= a.cfg.MaxReadyAttempts; attempt++ {
		select {
		case <-p.exited:
			log.Error().Int("pid", pid).AnErr("exit", p.err).Msg("adapter event=exit_early")
			a.publisher.Publish(Event{Name: EventSpawnExit, ModelID: desc.ID, Fields: map[string]any{"pid": pid, "before_ready": true}})
			return nil, &LoadError{Model: desc.ID, Err: fmt.Errorf("backend exited before ready (%v); output tail: %s", p.err, tail.String())}
		default:
		}
		if a.client.healthy(ctx, baseURL, a.cfg.CheckTimeout) {
			log.Info().Int("pid", pid).Int("attempts", attempt).Msg("adapter event=ready")
			return &subprocessResource{a: a, model: desc.ID, baseURL: baseURL, port: port, proc: p}, nil
		}
		select {
		case <-ctx.Done():
			p.kill()
			return nil, &LoadError{Model: desc.ID, Err: ctx.Err()}
		case <-p.exited:
			// reported at the top of the next iteration
		case <-time.After(a.cfg.ReadyInterval):
		}
	}
	p.kill()
	log.Error().Int("pid", pid).Int("attempts", a.cfg.MaxReadyAttempts).Msg("adapter event=timeout")
	return nil, &LoadTimeoutError{Model: desc.ID, Attempts: a.cfg.MaxReadyAttempts, Interval: a.cfg.ReadyInterval}
}

// process owns the single Wait call for a spawned command.
type process struct {
	cmd    *exec.Cmd
	exited chan struct{}
	err    error
}

func (p *process) wait() {
	p.err = p.cmd.Wait()
	close(p.exited)
}

// kill sends SIGKILL and waits for the process to be reaped.
func (p *process) kill() {
	select {
	case <-p.exited:
		return
	default:
	}
	_ = p.cmd.Process.Kill()
	<-p.exited
}

// subprocessResource is a ready backend process.
type subprocessResource struct {
	a       *subprocessAdapter
	model   string
	baseURL string
	port    int
	proc    *process
}

func (r *subprocessResource) Chat(ctx context.Context, req types.ChatCompletionRequest) (ChunkStream, error) {
	select {
	case <-r.proc.exited:
		return nil, fmt.Errorf("%w: %v", ErrBackendExited, r.proc.err)
	default:
	}
	return r.a.client.chat(ctx, r.baseURL, req)
}

// Release sends SIGTERM and waits StopTimeout (or until ctx is done) before
// killing the process.
func (r *subprocessResource) Release(ctx context.Context) error {
	p := r.proc
	select {
	case <-p.exited:
		return nil
	default:
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		p.kill()
		return nil
	}
	timer := time.NewTimer(r.a.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-p.exited:
		r.a.publisher.Publish(Event{Name: EventSpawnStop, ModelID: r.model, Fields: map[string]any{"pid": p.cmd.Process.Pid}})
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}
	p.kill()
	r.a.publisher.Publish(Event{Name: EventSpawnStop, ModelID: r.model, Fields: map[string]any{"pid": p.cmd.Process.Pid, "killed": true}})
	return fmt.Errorf("backend pid %d did not stop within %s; killed", p.cmd.Process.Pid, r.a.cfg.StopTimeout)
}

func (r *subprocessResource) Kill() error {
	r.proc.kill()
	return nil
}

func (r *subprocessResource) Exited() <-chan struct{} { return r.proc.exited }

func (r *subprocessResource) Info() ResourceInfo {
	return ResourceInfo{PID: r.proc.cmd.Process.Pid, Port: r.port}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer { return &tailBuffer{max: max} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = append(t.buf[:0], t.buf[len(t.buf)-t.max:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
