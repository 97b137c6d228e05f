package process

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/shared/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// killLog records which processes a registry tried to kill.
type killLog struct {
	mu   sync.Mutex
	pids []int
	fail map[int]bool
}

func (k *killLog) kill(p *os.Process) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pids = append(k.pids, p.Pid)
	if k.fail[p.Pid] {
		return errors.New("operation not permitted")
	}
	return nil
}

func (k *killLog) killed() []int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]int(nil), k.pids...)
}

func newTestRegistry(t *testing.T) (*Registry, *killLog) {
	t.Helper()
	k := &killLog{fail: map[int]bool{}}
	return NewRegistry(WithKiller(k.kill)), k
}

func fakeProcess(pid int) *os.Process {
	return &os.Process{Pid: pid}
}

func TestRegisterAndRemove(t *testing.T) {
	reg, _ := newTestRegistry(t)
	conn := id.NewConnectionID()

	pid := reg.Register(fakeProcess(101), "/ws", conn, "npm start")
	assert.Equal(t, 101, pid)
	assert.Equal(t, 1, reg.Len())

	rec, ok := reg.Get(101)
	require.True(t, ok)
	assert.Equal(t, conn, rec.Owner)
	assert.Equal(t, "npm start", rec.Command)
	assert.Equal(t, StateRunning, rec.State())

	reg.Remove(101)
	reg.Remove(101)
	assert.Equal(t, 0, reg.Len())
}

func TestTerminateOwnedByOnlyTouchesOwner(t *testing.T) {
	reg, k := newTestRegistry(t)
	a, b := id.NewConnectionID(), id.NewConnectionID()

	reg.Register(fakeProcess(1), "/ws", a, "one")
	reg.Register(fakeProcess(2), "/ws", a, "two")
	reg.Register(fakeProcess(3), "/ws", b, "three")

	n := reg.TerminateOwnedBy(a)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []int{1, 2}, k.killed())
	assert.Equal(t, 1, reg.Len())

	_, ok := reg.Get(3)
	assert.True(t, ok)
}

func TestTerminateOwnedByNothing(t *testing.T) {
	reg, k := newTestRegistry(t)
	assert.Equal(t, 0, reg.TerminateOwnedBy(id.NewConnectionID()))
	assert.Empty(t, k.killed())
}

func TestTerminateUnder(t *testing.T) {
	reg, k := newTestRegistry(t)
	root := t.TempDir()
	conn := id.NewConnectionID()

	reg.Register(fakeProcess(10), filepath.Join(root, "a"), conn, "sleep 100")
	reg.Register(fakeProcess(11), filepath.Join(root, "a", "b"), conn, "sleep 100")
	reg.Register(fakeProcess(12), filepath.Join(root, "ab"), conn, "sleep 100")
	reg.Register(fakeProcess(13), root, conn, "sleep 100")

	n := reg.TerminateUnder(filepath.Join(root, "a"))
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []int{10, 11}, k.killed())
	assert.Equal(t, 2, reg.Len())
}

func TestTerminateFailureStillRemoves(t *testing.T) {
	reg, k := newTestRegistry(t)
	k.fail[7] = true
	conn := id.NewConnectionID()

	reg.Register(fakeProcess(7), "/ws", conn, "stubborn")
	reg.Register(fakeProcess(8), "/ws", conn, "polite")

	assert.Equal(t, 2, reg.TerminateOwnedBy(conn))
	assert.ElementsMatch(t, []int{7, 8}, k.killed())
	assert.Equal(t, 0, reg.Len())
}

func TestTerminateMarksState(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.Register(fakeProcess(5), "/ws", id.NewConnectionID(), "x")

	rec, _ := reg.Get(5)
	reg.Terminate(5)
	reg.Terminate(999)

	assert.Equal(t, StateTerminated, rec.State())
	assert.Equal(t, 1, reg.Len(), "Terminate alone does not remove")
}

func TestObserverSeesSize(t *testing.T) {
	var sizes []int
	reg := NewRegistry(
		WithKiller(func(*os.Process) error { return nil }),
		WithObserver(func(n int) { sizes = append(sizes, n) }),
	)
	conn := id.NewConnectionID()

	reg.Register(fakeProcess(1), "/ws", conn, "a")
	reg.Register(fakeProcess(2), "/ws", conn, "b")
	reg.Remove(1)
	reg.Remove(1)
	reg.TerminateAll()

	assert.Equal(t, []int{1, 2, 1, 0}, sizes)
}

func TestListIsSnapshot(t *testing.T) {
	reg, _ := newTestRegistry(t)
	conn := id.NewConnectionID()
	reg.Register(fakeProcess(1), "/ws", conn, "first")
	reg.Register(fakeProcess(2), "/ws", conn, "second")

	list := reg.List()
	require.Len(t, list, 2)
	reg.Remove(1)

	assert.Len(t, list, 2)
	assert.Equal(t, "running", list[0].State)
}

func TestConcurrentRegistration(t *testing.T) {
	reg, _ := newTestRegistry(t)
	conns := []id.ConnectionID{id.NewConnectionID(), id.NewConnectionID()}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.Register(fakeProcess(1000+i), "/ws", conns[i%2], "cmd")
		}(i)
	}
	wg.Wait()

	var (
		mu         sync.Mutex
		terminated int
		tw         sync.WaitGroup
	)
	for _, c := range conns {
		tw.Add(1)
		go func(c id.ConnectionID) {
			defer tw.Done()
			n := reg.TerminateOwnedBy(c)
			mu.Lock()
			terminated += n
			mu.Unlock()
		}(c)
	}
	tw.Wait()

	assert.Equal(t, 100, terminated)
	assert.Equal(t, 0, reg.Len())
}
