// Package hub is the coordination point of the relay. One goroutine owns the
// session table, the room table and the matchmaking queue, and consumes
// intents from a single channel, so no two mutations of that state ever run
// concurrently. Connection code never touches the tables directly; it sends
// an intent and, for Connect only, waits for the reply.
package hub

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/chess-relay/internal/bitboard"
	"github.com/kapu/chess-relay/internal/directory"
	"github.com/kapu/chess-relay/internal/game"
	"github.com/kapu/chess-relay/internal/obslog"
)

// ErrStopped is returned by Connect when the hub is shutting down.
var ErrStopped = errors.New("hub stopped")

const intentBuffer = 64

type waiting struct {
	id     uint64
	pusher game.Pusher
}

// Hub owns all shared relay state. Construct with New, then start Run on its
// own goroutine before accepting connections.
type Hub struct {
	intents chan intent
	log     *zap.Logger

	// Owned by the Run goroutine; never touched elsewhere.
	sessions map[uint64]game.Pusher
	rooms    map[uuid.UUID]*game.Room
	queue    []waiting
	nextID   uint64

	dir *directory.Directory
}

// New constructs a hub. dir may be nil when no room directory is configured.
func New(dir *directory.Directory) *Hub {
	return &Hub{
		intents:  make(chan intent, intentBuffer),
		log:      obslog.L().Named("hub"),
		sessions: make(map[uint64]game.Pusher),
		rooms:    make(map[uuid.UUID]*game.Room),
		dir:      dir,
	}
}

// Run consumes intents until ctx is cancelled. It is the only goroutine that
// reads or writes the session/room/queue tables.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.drainConnects()
			return
		case msg := <-h.intents:
			h.dispatch(ctx, msg)
		}
	}
}

// drainConnects fails pending Connect callers instead of leaving them parked.
func (h *Hub) drainConnects() {
	for {
		select {
		case msg := <-h.intents:
			if c, ok := msg.(connect); ok {
				close(c.reply)
			}
		default:
			return
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, msg intent) {
	switch m := msg.(type) {
	case connect:
		h.handleConnect(m)
	case disconnect:
		h.handleDisconnect(m)
	case createRoom:
		h.handleCreateRoom(ctx, m)
	case joinRoom:
		h.handleJoinRoom(ctx, m)
	case joinQueue:
		h.handleJoinQueue(ctx, m)
	case clientMove:
		h.handleClientMove(m)
	}
}

// Connect registers a push handle and returns the assigned connection id.
// Ids are monotonic from 1 and never reused.
func (h *Hub) Connect(ctx context.Context, p game.Pusher) (uint64, error) {
	reply := make(chan uint64, 1)
	select {
	case h.intents <- connect{pusher: p, reply: reply}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case id, ok := <-reply:
		if !ok {
			return 0, ErrStopped
		}
		return id, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Disconnect removes a registration. Unknown ids are a no-op.
func (h *Hub) Disconnect(id uint64) { h.intents <- disconnect{id: id} }

// CreateRoom opens a new room with the caller as its first (white) seat.
func (h *Hub) CreateRoom(id uint64) { h.intents <- createRoom{id: id} }

// JoinRoom seats the caller in an existing room.
func (h *Hub) JoinRoom(id uint64, roomID uuid.UUID) {
	h.intents <- joinRoom{id: id, roomID: roomID}
}

// JoinQueue enters the caller into the matchmaking queue.
func (h *Hub) JoinQueue(id uint64) { h.intents <- joinQueue{id: id} }

// Move submits a move for the caller in the given room.
func (h *Hub) Move(id uint64, roomID uuid.UUID, mv bitboard.Move) {
	h.intents <- clientMove{id: id, roomID: roomID, mv: mv}
}

func (h *Hub) handleConnect(m connect) {
	h.nextID++
	id := h.nextID
	h.sessions[id] = m.pusher
	h.log.Info("client_connect", zap.Uint64("session_id", id))
	m.reply <- id
}

func (h *Hub) handleDisconnect(m disconnect) {
	if _, ok := h.sessions[m.id]; !ok {
		return
	}
	delete(h.sessions, m.id)
	h.dropFromQueue(m.id)
	h.log.Info("client_disconnect", zap.Uint64("session_id", m.id))
}

// dropFromQueue removes a waiting entry so a dead connection is never paired.
func (h *Hub) dropFromQueue(id uint64) {
	for i, w := range h.queue {
		if w.id == id {
			h.queue = append(h.queue[:i], h.queue[i+1:]...)
			return
		}
	}
}

func (h *Hub) handleCreateRoom(ctx context.Context, m createRoom) {
	p, ok := h.sessions[m.id]
	if !ok {
		return
	}
	roomID := uuid.New()
	room := game.NewRoom(roomID, bitboard.New())
	room.AddPlayer(m.id, p)
	h.rooms[roomID] = room
	h.log.Info("room_create", zap.String("room_id", roomID.String()), zap.Uint64("session_id", m.id))
	h.announce(ctx, room)
}

func (h *Hub) handleJoinRoom(ctx context.Context, m joinRoom) {
	p, ok := h.sessions[m.id]
	if !ok {
		return
	}
	room, found := h.rooms[m.roomID]
	if !found {
		p.SendError("Room not found")
		return
	}
	if room.PlayerCount() >= 2 {
		p.SendError("Room is full")
		return
	}
	room.AddPlayer(m.id, p)
	h.log.Info("room_join", zap.String("room_id", m.roomID.String()), zap.Uint64("session_id", m.id))
	h.announce(ctx, room)
}

func (h *Hub) handleJoinQueue(ctx context.Context, m joinQueue) {
	p, ok := h.sessions[m.id]
	if !ok {
		return
	}
	for _, w := range h.queue {
		if w.id == m.id {
			return // already waiting
		}
	}
	h.queue = append(h.queue, waiting{id: m.id, pusher: p})
	h.log.Info("queue_join", zap.Uint64("session_id", m.id), zap.Int("queue_len", len(h.queue)))

	if len(h.queue) < 2 {
		return
	}
	first, second := h.queue[0], h.queue[1]
	h.queue = h.queue[2:]

	roomID := uuid.New()
	room := game.NewRoom(roomID, bitboard.New())
	room.AddPlayer(first.id, first.pusher)
	room.AddPlayer(second.id, second.pusher)
	h.rooms[roomID] = room
	h.log.Info("queue_pair",
		zap.String("room_id", roomID.String()),
		zap.Uint64("white_id", first.id),
		zap.Uint64("black_id", second.id),
	)
	h.announce(ctx, room)
}

func (h *Hub) handleClientMove(m clientMove) {
	room, found := h.rooms[m.roomID]
	if !found {
		h.sendError(m.id, "Room not found")
		return
	}
	color, seated := room.ColorOf(m.id)
	if !seated {
		h.sendError(m.id, "Player not found in room")
		return
	}
	if color != room.Turn() {
		h.sendError(m.id, "Not your turn")
		return
	}
	if !room.ApplyMove(m.mv) {
		h.sendError(m.id, "Invalid move")
		return
	}
	room.SwitchTurn()
	room.BroadcastUpdate()
}

// sendError pushes an error to the requesting connection only.
func (h *Hub) sendError(id uint64, text string) {
	if p, ok := h.sessions[id]; ok {
		p.SendError(text)
	}
}

// announce mirrors the room's seating into the directory, best-effort.
func (h *Hub) announce(ctx context.Context, room *game.Room) {
	if h.dir == nil {
		return
	}
	if err := h.dir.Announce(ctx, room.ID.String(), room.PlayerCount()); err != nil {
		h.log.Warn("directory_announce_failed", zap.String("room_id", room.ID.String()), zap.Error(err))
	}
}
