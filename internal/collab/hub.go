package collab

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rfaga/storyteller/internal/asset"
	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/editor"
	"github.com/rfaga/storyteller/internal/typeid"
)

var ErrSessionNotFound = errors.New("session not found")

const reapInterval = time.Minute

type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]*Room // sessionID -> room
	factory     SessionFactory
	idleTimeout time.Duration
	register    chan *Client
	unregister  chan *Client
	quit        chan struct{}
	stopOnce    sync.Once
}

// NewHub creates a hub. Rooms without clients are closed after idleTimeout;
// zero keeps them until Stop.
func NewHub(factory SessionFactory, idleTimeout time.Duration) *Hub {
	return &Hub{
		rooms:       make(map[string]*Room),
		factory:     factory,
		idleTimeout: idleTimeout,
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		quit:        make(chan struct{}),
	}
}

func (h *Hub) Run() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			client.room.addClient(client)
		case client := <-h.unregister:
			if client.room.removeClient(client) {
				client.closeSend()
			}
		case <-ticker.C:
			h.reap(time.Now())
		case <-h.quit:
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		client.closeSend()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Create starts a session seeded with objects.
func (h *Hub) Create(ctx context.Context, objects []document.Object) (*Room, error) {
	room := newRoom(typeid.NewSessionID(), h.factory)
	if err := room.Do(ctx, func(s *editor.Session) { s.ReplaceAll(objects) }); err != nil {
		room.Stop()
		return nil, err
	}

	h.mu.Lock()
	h.rooms[room.id] = room
	h.mu.Unlock()

	slog.Info("session created", "session", room.id, "objects", len(objects))
	return room, nil
}

func (h *Hub) Get(id string) (*Room, error) {
	h.mu.RLock()
	room, ok := h.rooms[id]
	h.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return room, nil
}

// Len returns the number of open sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// CompleteImport places a decoded image in a session.
func (h *Hub) CompleteImport(ctx context.Context, sessionID string, desc asset.Descriptor) (document.Object, error) {
	room, err := h.Get(sessionID)
	if err != nil {
		return document.Object{}, err
	}
	var obj document.Object
	err = room.Do(ctx, func(s *editor.Session) { obj = s.CompleteImport(desc) })
	return obj, err
}

// Broadcast sends msg to every client of every session.
func (h *Hub) Broadcast(msg *Message) {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		r.broadcast(msg)
	}
}

// NotifyGamesUpdated tells every client the saved-games list changed.
func (h *Hub) NotifyGamesUpdated(file string) {
	msg, err := newMessage(TypeGamesUpdated, GamesUpdatedPayload{File: file})
	if err != nil {
		slog.Error("encode games update", "error", err)
		return
	}
	h.Broadcast(msg)
}

func (h *Hub) reap(now time.Time) {
	if h.idleTimeout <= 0 {
		return
	}
	cutoff := now.Add(-h.idleTimeout)

	h.mu.Lock()
	var expired []*Room
	for id, r := range h.rooms {
		if r.idle(cutoff) {
			expired = append(expired, r)
			delete(h.rooms, id)
		}
	}
	h.mu.Unlock()

	for _, r := range expired {
		r.Stop()
		slog.Info("session expired", "session", r.id)
	}
}

// Stop closes every session and disconnects their clients.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })

	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*Room)
	h.mu.Unlock()

	for _, r := range rooms {
		r.closeClients()
		r.Stop()
	}
}
