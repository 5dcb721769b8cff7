package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rfaga/storyteller/internal/editor"
	"github.com/rfaga/storyteller/internal/geom"
	"github.com/rfaga/storyteller/internal/render"
	"github.com/rfaga/storyteller/internal/tool"
)

var ErrRoomClosed = errors.New("session closed")

// SessionFactory builds the editing session for a room. The session should
// render onto surface so clients receive frames.
type SessionFactory func(id string, surface render.Surface) *editor.Session

// Room owns one editing session and serializes every command against it on
// a single goroutine.
type Room struct {
	id       string
	session  *editor.Session
	surface  *render.CommandSurface
	commands chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu         sync.Mutex
	clients    map[string]*Client // clientID -> client
	lastActive time.Time
}

func newRoom(id string, factory SessionFactory) *Room {
	surface := render.NewCommandSurface()
	r := &Room{
		id:         id,
		session:    factory(id, surface),
		surface:    surface,
		commands:   make(chan func(), 64),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		clients:    make(map[string]*Client),
		lastActive: time.Now(),
	}
	r.session.Subscribe(r.onChange)
	go r.run()
	return r
}

func (r *Room) ID() string { return r.id }

func (r *Room) run() {
	defer close(r.done)
	for {
		select {
		case cmd := <-r.commands:
			cmd()
		case <-r.quit:
			return
		}
	}
}

// Stop ends the event loop. Queued commands that have not started are dropped.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
	<-r.done
}

// Do runs fn on the room goroutine and waits for it. Clients are sent the
// resulting frame and interaction state afterwards.
func (r *Room) Do(ctx context.Context, fn func(s *editor.Session)) error {
	return r.exec(ctx, fn, true)
}

// View runs fn on the room goroutine without notifying clients. fn must not
// mutate the session.
func (r *Room) View(ctx context.Context, fn func(s *editor.Session)) error {
	return r.exec(ctx, fn, false)
}

func (r *Room) exec(ctx context.Context, fn func(s *editor.Session), notify bool) error {
	finished := make(chan struct{})
	cmd := func() {
		defer close(finished)
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic in session command", "panic", rec, "session", r.id)
			}
		}()
		fn(r.session)
		if notify {
			r.broadcastFrame()
		}
	}

	select {
	case r.commands <- cmd:
	case <-r.quit:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	r.touch()

	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) touch() {
	r.mu.Lock()
	r.lastActive = time.Now()
	r.mu.Unlock()
}

// idle reports whether the room has no clients and no activity since cutoff.
func (r *Room) idle(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients) == 0 && r.lastActive.Before(cutoff)
}

func (r *Room) addClient(c *Client) {
	r.mu.Lock()
	r.clients[c.ClientID] = c
	r.lastActive = time.Now()
	r.mu.Unlock()

	// Welcome is built on the loop so it reflects a consistent scene.
	err := r.View(context.Background(), func(s *editor.Session) {
		msg, err := newMessage(TypeWelcome, WelcomePayload{
			SessionID:     r.id,
			ClientID:      c.ClientID,
			Objects:       s.Objects(),
			GeneratedCode: s.Code(),
			State:         s.State(),
			Frame:         r.surface.Commands(),
		})
		if err != nil {
			slog.Error("marshal welcome", "error", err)
			return
		}
		c.Send(msg)
	})
	if err != nil {
		slog.Warn("welcome client", "error", err, "session", r.id)
	}
	slog.Info("client joined", "client", c.ClientID, "session", r.id)
}

// removeClient reports whether the client was still registered.
func (r *Room) removeClient(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.ClientID]; !ok {
		return false
	}
	delete(r.clients, c.ClientID)
	r.lastActive = time.Now()
	slog.Info("client left", "client", c.ClientID, "session", r.id)
	return true
}

func (r *Room) closeClients() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.clients {
		delete(r.clients, id)
		c.closeSend()
	}
}

func (r *Room) broadcast(msg *Message) {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()

	msg.SessionID = r.id
	for _, c := range clients {
		c.Send(msg)
	}
}

// onChange runs on the room goroutine for every object-list mutation.
func (r *Room) onChange(ch editor.Change) {
	msg, err := newMessage(TypeSceneChanged, ch)
	if err != nil {
		slog.Error("marshal scene change", "error", err)
		return
	}
	r.broadcast(msg)
}

// broadcastFrame must run on the room goroutine.
func (r *Room) broadcastFrame() {
	if frame, err := newMessage(TypeRenderFrame, RenderFramePayload{Commands: r.surface.Commands()}); err == nil {
		r.broadcast(frame)
	}
	if state, err := newMessage(TypeSessionState, r.session.State()); err == nil {
		r.broadcast(state)
	}
}

// handleMessage applies one inbound client message to the session.
func (r *Room) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	apply, err := decodeCommand(msg)
	if err != nil {
		sender.SendError(err.Error())
		return
	}

	var cmdErr error
	if err := r.Do(ctx, func(s *editor.Session) { cmdErr = apply(s) }); err != nil {
		sender.SendError(err.Error())
		return
	}
	if cmdErr != nil {
		sender.SendError(cmdErr.Error())
	}
}

// decodeCommand turns a message into a session command.
func decodeCommand(msg *Message) (func(*editor.Session) error, error) {
	switch msg.Type {
	case TypeToolSelect:
		var p ToolSelectPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		t, err := tool.Parse(p.Tool)
		if err != nil {
			return nil, err
		}
		return func(s *editor.Session) error { s.SetTool(t); return nil }, nil

	case TypePointerDown, TypePointerMove, TypePointerUp:
		var p PointerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		pt := geom.Pt(p.X, p.Y)
		return func(s *editor.Session) error {
			switch msg.Type {
			case TypePointerDown:
				s.PointerDown(pt)
			case TypePointerMove:
				s.PointerMove(pt)
			default:
				s.PointerUp(pt)
			}
			return nil
		}, nil

	case TypePointerLeave:
		return func(s *editor.Session) error { s.PointerLeave(); return nil }, nil

	case TypeObjectSelect:
		var p ObjectRefPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		return func(s *editor.Session) error {
			if p.ID == "" {
				s.ClearSelection()
				return nil
			}
			if !s.Select(p.ID) {
				return fmt.Errorf("unknown object %q", p.ID)
			}
			return nil
		}, nil

	case TypeObjectDelete:
		var p ObjectRefPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return nil, fmt.Errorf("invalid %s payload: %w", msg.Type, err)
			}
		}
		return func(s *editor.Session) error { s.Delete(p.ID); return nil }, nil

	case TypeObjectUpdate:
		var p ObjectUpdatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		return func(s *editor.Session) error {
			if !s.Update(p.ID, p.Patch) {
				return fmt.Errorf("unknown object %q", p.ID)
			}
			return nil
		}, nil

	case TypeSceneReplace:
		var p SceneReplacePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", msg.Type, err)
		}
		return func(s *editor.Session) error { s.ReplaceAll(p.Objects); return nil }, nil
	}

	return nil, fmt.Errorf("unknown message type %q", msg.Type)
}
