package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/domain/process"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/logging"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/shared/id"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Session is the protocol state of one connection. Reads happen on the
// run goroutine only; writes from process output goroutines are serialized
// by writeMu.
type Session struct {
	id   id.ConnectionID
	h    *Handler
	conn *websocket.Conn
	log  *logging.Logger

	writeMu sync.Mutex
	waiters sync.WaitGroup
}

func newSession(h *Handler, connID id.ConnectionID, conn *websocket.Conn) *Session {
	return &Session{
		id:   connID,
		h:    h,
		conn: conn,
		log:  h.log.With(zap.String("conn", connID.String())),
	}
}

// ID returns the connection ID that owns this session's processes.
func (s *Session) ID() id.ConnectionID { return s.id }

func (s *Session) run() {
	s.h.metrics.IncWSConnections()
	stopPing := s.keepAlive()

	defer func() {
		stopPing()
		n := s.h.registry.TerminateOwnedBy(s.id)
		s.h.metrics.RecordTermination("disconnect", n)
		_ = s.conn.Close()
		s.drain(5 * time.Second)
		s.h.metrics.DecWSConnections()
		s.log.Info("connection closed", zap.Int("terminated", n))
	}()

	if s.h.cfg.MaxMessageSize > 0 {
		s.conn.SetReadLimit(s.h.cfg.MaxMessageSize)
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Warn("read failed", zap.Error(err))
			}
			return
		}
		s.dispatch(data)
	}
}

// drain waits for process waiters to finish, up to timeout. A process
// that ignores SIGTERM can outlive the session; its waiter still removes it
// from the registry when it exits.
func (s *Session) drain(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.waiters.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.log.Warn("processes still exiting after disconnect")
	}
}

// keepAlive sends ping control frames and expects pongs within two
// intervals. It returns a function that stops the ticker.
func (s *Session) keepAlive() func() {
	interval := s.h.cfg.PingInterval
	if interval <= 0 {
		return func() {}
	}

	extend := func() {
		_ = s.conn.SetReadDeadline(time.Now().Add(2 * interval))
	}
	extend()
	s.conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout())); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// dispatch handles one inbound frame. A panic is reported to the client
// and never escapes the read loop.
func (s *Session) dispatch(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic handling message", zap.Any("panic", r), zap.Stack("stack"))
			s.send(errorMessage("", fmt.Sprintf("internal error: %v", r)))
		}
	}()

	req, err := Decode(data)
	if err != nil {
		s.h.metrics.RecordWSMessage("in", "invalid")
		s.send(errorMessage("", err.Error()))
		return
	}
	s.h.metrics.RecordWSMessage("in", string(req.requestType()))

	switch r := req.(type) {
	case CommandRequest:
		s.start(r)
	case StopRequest:
		s.stop()
	case PingRequest:
		s.send(pongMessage())
	}
}

func (s *Session) start(req CommandRequest) {
	dir := s.h.dirs.Root()
	if req.Cwd != "" {
		resolved, err := s.h.dirs.ResolveDir(req.Cwd)
		if err != nil {
			s.send(errorMessage(req.Command, fmt.Sprintf("invalid cwd %q: %v", req.Cwd, err)))
			return
		}
		dir = resolved
	}

	run, err := s.h.spawner.Start(process.Spec{
		Command: req.Command,
		Dir:     dir,
		Owner:   s.id,
		Stdout:  &streamWriter{s: s, kind: TypeOutput, command: req.Command},
		Stderr:  &streamWriter{s: s, kind: TypeError, command: req.Command},
	})
	if err != nil {
		s.h.metrics.RecordProcessExit("spawn_failed")
		s.log.Warn("spawn failed", zap.String("command", req.Command), zap.Error(err))
		s.send(errorMessage(req.Command, err.Error()))
		return
	}

	s.h.metrics.IncProcessesSpawned()
	s.log.Info("process started",
		zap.Int("pid", run.PID),
		zap.String("command", req.Command),
		zap.String("dir", dir))

	s.waiters.Add(1)
	go func() {
		defer s.waiters.Done()
		s.finish(run, run.Wait())
	}()
}

func (s *Session) finish(run *process.Execution, exit process.Exit) {
	outcome := "success"
	switch {
	case exit.State == process.StateTerminated:
		outcome = "terminated"
	case exit.Code == -1:
		outcome = "signaled"
	case exit.Code != 0:
		outcome = "failure"
	}
	s.h.metrics.RecordProcessExit(outcome)

	fields := []zap.Field{
		zap.Int("pid", run.PID),
		zap.Int("code", exit.Code),
		zap.String("state", exit.State.String()),
	}
	if exit.Err != nil {
		s.log.Warn("process wait failed", append(fields, zap.Error(exit.Err))...)
	} else {
		s.log.Info("process exited", fields...)
	}

	if s.h.isScaffold(run.Command) {
		s.send(completeMessage(run.Command, exit.Code))
		return
	}
	s.send(closeMessage(run.Command, exit.Code))
}

// stop terminates every process this session owns. With none it does
// nothing and sends nothing.
func (s *Session) stop() {
	n := s.h.registry.TerminateOwnedBy(s.id)
	s.h.metrics.RecordTermination("stop", n)
	if n > 0 {
		s.log.Info("stopped processes", zap.Int("count", n))
	}
}

// send writes one frame. Errors mean the peer is gone; the read loop will
// notice and tear the session down.
func (s *Session) send(msg Message) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout()))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.log.Debug("write failed", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}
	s.h.metrics.RecordWSMessage("out", string(msg.Type))
}

func (s *Session) writeTimeout() time.Duration {
	if s.h.cfg.WriteTimeout > 0 {
		return s.h.cfg.WriteTimeout
	}
	return 10 * time.Second
}

// streamWriter turns each chunk a process writes into one message.
type streamWriter struct {
	s       *Session
	kind    MessageType
	command string
}

func (w *streamWriter) Write(p []byte) (int, error) {
	if w.kind == TypeError {
		w.s.send(errorMessage(w.command, string(p)))
	} else {
		w.s.send(outputMessage(w.command, string(p)))
	}
	return len(p), nil
}
