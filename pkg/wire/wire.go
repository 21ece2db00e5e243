// Package wire defines the JSON frames exchanged with clients. Every frame
// is a text message of the shape {"type": <string>, "data": <payload>}.
package wire

import (
	"encoding/json"

	"github.com/kapu/chess-relay/internal/bitboard"
)

// Inbound frame types.
const (
	TypeCreateRoom = "create_room"
	TypeJoinRoom   = "join_room"
	TypeJoinQueue  = "join_queue"
	TypeMove       = "move"
)

// Outbound frame types.
const (
	TypeRoomJoined = "room_joined"
	TypeUpdate     = "update"
	TypeError      = "error"
)

// ClientFrame is an inbound frame; Data stays raw until the type is known.
type ClientFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// JoinRoomData carries the target room of a join_room frame.
type JoinRoomData struct {
	RoomID string `json:"room_id"`
}

// MoveData carries the square indices of a move frame.
type MoveData struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Envelope is an outbound frame.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// RoomJoinedData confirms a seat assignment.
type RoomJoinedData struct {
	RoomID string `json:"room_id"`
	Color  string `json:"color"`
}

// PieceDTO is one occupied square in an update frame.
type PieceDTO struct {
	PieceType string `json:"piece_type"`
	Color     string `json:"color"`
	Position  int    `json:"position"`
}

// UpdateData is the full board push sent after every applied move.
type UpdateData struct {
	Pieces []PieceDTO `json:"pieces"`
	Turn   string     `json:"turn"`
}

// RoomJoined builds a room_joined envelope.
func RoomJoined(roomID string, color bitboard.Side) Envelope {
	return Envelope{Type: TypeRoomJoined, Data: RoomJoinedData{RoomID: roomID, Color: color.String()}}
}

// Update builds an update envelope from the board's piece list.
func Update(pieces []bitboard.Piece, turn bitboard.Side) Envelope {
	dto := make([]PieceDTO, 0, len(pieces))
	for _, p := range pieces {
		dto = append(dto, PieceDTO{PieceType: p.Kind.String(), Color: p.Side.String(), Position: p.Square})
	}
	return Envelope{Type: TypeUpdate, Data: UpdateData{Pieces: dto, Turn: turn.String()}}
}

// Error builds an error envelope; data is the bare message string.
func Error(text string) Envelope {
	return Envelope{Type: TypeError, Data: text}
}
