package process

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/logging"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/shared/id"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/shared/paths"
	"go.uber.org/zap"
)

// Record is a live process tracked by the registry.
type Record struct {
	PID       int
	Process   *os.Process
	Dir       string
	Owner     id.ConnectionID
	Command   string
	StartedAt time.Time

	life *Lifecycle
}

// State returns the record's lifecycle state.
func (r *Record) State() State {
	return r.life.State()
}

// Info is a copy of a record safe to hand to callers.
type Info struct {
	PID       int             `json:"pid"`
	Dir       string          `json:"dir"`
	Owner     id.ConnectionID `json:"owner"`
	Command   string          `json:"command"`
	StartedAt time.Time       `json:"started_at"`
	State     string          `json:"state"`
}

// Killer terminates a process. The platform default signals the whole
// process group on Unix and the whole tree on Windows.
type Killer func(p *os.Process) error

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(log *logging.Logger) Option {
	return func(r *Registry) { r.log = log.Named("process") }
}

// WithKiller replaces the platform termination.
func WithKiller(k Killer) Option {
	return func(r *Registry) { r.kill = k }
}

// WithObserver is called with the registry size after every change.
func WithObserver(fn func(active int)) Option {
	return func(r *Registry) { r.observe = fn }
}

// Registry tracks every spawned process by PID. Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	records map[int]*Record
	log     *logging.Logger
	kill    Killer
	observe func(active int)
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		records: make(map[int]*Record),
		log:     logging.Nop(),
		kill:    terminate,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register records a started process and returns its PID.
func (r *Registry) Register(p *os.Process, dir string, owner id.ConnectionID, command string) int {
	life := NewLifecycle()
	life.Transition(StateRunning)
	return r.add(&Record{
		PID:       p.Pid,
		Process:   p,
		Dir:       dir,
		Owner:     owner,
		Command:   command,
		StartedAt: time.Now(),
		life:      life,
	})
}

func (r *Registry) add(rec *Record) int {
	r.mu.Lock()
	r.records[rec.PID] = rec
	n := len(r.records)
	r.mu.Unlock()

	r.notify(n)
	r.log.Debug("process registered",
		zap.Int("pid", rec.PID),
		zap.String("owner", rec.Owner.String()),
		zap.String("dir", rec.Dir))
	return rec.PID
}

// Remove drops pid from the registry. Removing an unknown PID is a no-op.
func (r *Registry) Remove(pid int) {
	r.mu.Lock()
	_, ok := r.records[pid]
	delete(r.records, pid)
	n := len(r.records)
	r.mu.Unlock()

	if ok {
		r.notify(n)
	}
}

// Get returns the record for pid.
func (r *Registry) Get(pid int) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[pid]
	return rec, ok
}

// Len returns the number of tracked processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// List returns a snapshot ordered by start time.
func (r *Registry) List() []Info {
	recs := r.snapshot(func(*Record) bool { return true })
	out := make([]Info, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Info{
			PID:       rec.PID,
			Dir:       rec.Dir,
			Owner:     rec.Owner,
			Command:   rec.Command,
			StartedAt: rec.StartedAt,
			State:     rec.State().String(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Terminate kills pid. Failures are logged, never returned.
func (r *Registry) Terminate(pid int) {
	rec, ok := r.Get(pid)
	if !ok {
		return
	}
	r.terminate(rec)
}

func (r *Registry) terminate(rec *Record) {
	rec.life.Transition(StateTerminated)
	if err := r.kill(rec.Process); err != nil {
		r.log.Warn("terminate failed",
			zap.Int("pid", rec.PID),
			zap.String("command", rec.Command),
			zap.Error(err))
		return
	}
	r.log.Info("process terminated",
		zap.Int("pid", rec.PID),
		zap.String("owner", rec.Owner.String()))
}

// TerminateWhere terminates and removes every process matching pred and
// returns how many matched. It works on a snapshot, so records added or
// removed concurrently do not disturb the sweep.
func (r *Registry) TerminateWhere(pred func(*Record) bool) int {
	matched := r.snapshot(pred)
	for _, rec := range matched {
		r.terminate(rec)
		r.Remove(rec.PID)
	}
	return len(matched)
}

// TerminateOwnedBy terminates every process owned by conn.
func (r *Registry) TerminateOwnedBy(conn id.ConnectionID) int {
	return r.TerminateWhere(func(rec *Record) bool { return rec.Owner == conn })
}

// TerminateUnder terminates every process whose working directory is dir
// or lies beneath it.
func (r *Registry) TerminateUnder(dir string) int {
	return r.TerminateWhere(func(rec *Record) bool { return paths.Within(dir, rec.Dir) })
}

// TerminateAll terminates every tracked process. Used on shutdown.
func (r *Registry) TerminateAll() int {
	return r.TerminateWhere(func(*Record) bool { return true })
}

func (r *Registry) snapshot(pred func(*Record) bool) []*Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (r *Registry) notify(n int) {
	if r.observe != nil {
		r.observe(n)
	}
}
