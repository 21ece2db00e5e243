// Package game owns the per-room state: the two seats, whose turn it is and
// the board. Rooms are only ever touched by the hub goroutine, so nothing
// here locks.
package game

import (
	"github.com/google/uuid"

	"github.com/kapu/chess-relay/internal/bitboard"
)

// Pusher is the capability to push asynchronous messages to one connection.
// Sends are best-effort: a handle whose connection has gone away must swallow
// the write, never panic.
type Pusher interface {
	RoomJoined(roomID uuid.UUID, color bitboard.Side)
	Update(pieces []bitboard.Piece, turn bitboard.Side)
	SendError(text string)
}

// Participant is one seated connection.
type Participant struct {
	ID     uint64
	Pusher Pusher
}

// Room pairs two participants over one board.
type Room struct {
	ID      uuid.UUID
	players []Participant
	colors  map[uint64]bitboard.Side
	board   *bitboard.Board
	turn    bitboard.Side
}

// NewRoom constructs an empty room; white moves first.
func NewRoom(id uuid.UUID, board *bitboard.Board) *Room {
	return &Room{
		ID:     id,
		colors: make(map[uint64]bitboard.Side),
		board:  board,
		turn:   bitboard.White,
	}
}

// AddPlayer seats a connection and pushes room_joined to it. The first seat
// is white, any later seat black. The two-seat cap is the caller's to
// enforce; this method does not reject a third join.
func (r *Room) AddPlayer(id uint64, p Pusher) bitboard.Side {
	color := bitboard.White
	if len(r.players) > 0 {
		color = bitboard.Black
	}
	r.colors[id] = color
	r.players = append(r.players, Participant{ID: id, Pusher: p})
	p.RoomJoined(r.ID, color)
	return color
}

// ColorOf looks up the side assigned to a connection.
func (r *Room) ColorOf(id uint64) (bitboard.Side, bool) {
	c, ok := r.colors[id]
	return c, ok
}

// PlayerCount returns the number of seated participants.
func (r *Room) PlayerCount() int { return len(r.players) }

// Turn returns the side to move.
func (r *Room) Turn() bitboard.Side { return r.turn }

// ApplyMove relocates a piece on the board. Turn and ownership gating happen
// in the hub before this is called.
func (r *Room) ApplyMove(m bitboard.Move) bool { return r.board.Apply(m) }

// SwitchTurn flips the side to move.
func (r *Room) SwitchTurn() { r.turn = r.turn.Other() }

// BroadcastUpdate pushes the current piece list and turn to every seat, one
// push per participant per call.
func (r *Room) BroadcastUpdate() {
	pieces := r.board.Pieces()
	for _, p := range r.players {
		p.Pusher.Update(pieces, r.turn)
	}
}
