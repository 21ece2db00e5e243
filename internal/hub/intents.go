package hub

import (
	"github.com/google/uuid"

	"github.com/kapu/chess-relay/internal/bitboard"
	"github.com/kapu/chess-relay/internal/game"
)

// intent is one message to the coordinator goroutine. Connect is the only
// request/reply intent; the rest are fire-and-forget.
type intent interface{ isIntent() }

type connect struct {
	pusher game.Pusher
	reply  chan uint64
}

type disconnect struct{ id uint64 }

type createRoom struct{ id uint64 }

type joinRoom struct {
	id     uint64
	roomID uuid.UUID
}

type joinQueue struct{ id uint64 }

type clientMove struct {
	id     uint64
	roomID uuid.UUID
	mv     bitboard.Move
}

func (connect) isIntent()    {}
func (disconnect) isIntent() {}
func (createRoom) isIntent() {}
func (joinRoom) isIntent()   {}
func (joinQueue) isIntent()  {}
func (clientMove) isIntent() {}
