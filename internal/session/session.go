// Package session drives one client connection: it decodes inbound frames
// into hub intents, writes pushes back onto the wire, and enforces the
// heartbeat. One Session runs on the goroutine of its HTTP handler.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kapu/chess-relay/internal/bitboard"
	"github.com/kapu/chess-relay/internal/game"
	"github.com/kapu/chess-relay/internal/obslog"
	"github.com/kapu/chess-relay/pkg/wire"
)

const writeTimeout = 5 * time.Second

// Coordinator is the slice of the hub a session talks to. Connect is
// request/reply; everything else is fire-and-forget.
type Coordinator interface {
	Connect(ctx context.Context, p game.Pusher) (uint64, error)
	Disconnect(id uint64)
	CreateRoom(id uint64)
	JoinRoom(id uint64, roomID uuid.UUID)
	JoinQueue(id uint64)
	Move(id uint64, roomID uuid.UUID, mv bitboard.Move)
}

// Session is one live connection. It implements game.Pusher so the hub and
// rooms can push to it asynchronously.
type Session struct {
	hub  Coordinator
	conn *websocket.Conn
	log  *zap.Logger

	hbInterval time.Duration
	hbTimeout  time.Duration

	id uint64

	writeMu sync.Mutex // wsjson.Write is not safe for concurrent writers

	mu     sync.Mutex
	roomID *uuid.UUID
	color  bitboard.Side

	lastSeen atomic.Int64 // unix nanos of last observed liveness

	stopOnce sync.Once
}

// New wraps an accepted connection. Run must be called to start it.
func New(hub Coordinator, conn *websocket.Conn, hbInterval, hbTimeout time.Duration) *Session {
	return &Session{
		hub:        hub,
		conn:       conn,
		log:        obslog.L().Named("session"),
		hbInterval: hbInterval,
		hbTimeout:  hbTimeout,
	}
}

// Run registers with the hub, then reads frames until the connection dies,
// the heartbeat lapses, or ctx is cancelled. It always reports Disconnect to
// the hub exactly once before returning.
func (s *Session) Run(ctx context.Context) {
	id, err := s.hub.Connect(ctx, s)
	if err != nil {
		s.log.Warn("connect_failed", zap.Error(err))
		_ = s.conn.Close(websocket.StatusInternalError, "registration failed")
		return
	}
	s.id = id
	s.log = s.log.With(zap.Uint64("session_id", id))
	s.touch()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.heartbeat(ctx)

	s.readLoop(ctx)
	s.shutdown(websocket.StatusNormalClosure, "")
}

func (s *Session) readLoop(ctx context.Context) {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.log.Debug("read_failed", zap.Error(err))
			}
			return
		}
		s.touch()
		if typ != websocket.MessageText {
			continue
		}
		s.handleFrame(data)
	}
}

// handleFrame translates one inbound frame into a hub intent. Malformed
// input is answered locally and never reaches the hub.
func (s *Session) handleFrame(data []byte) {
	var frame wire.ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.SendError("Invalid message format")
		return
	}
	switch frame.Type {
	case wire.TypeCreateRoom:
		s.hub.CreateRoom(s.id)
	case wire.TypeJoinRoom:
		var d wire.JoinRoomData
		if err := json.Unmarshal(frame.Data, &d); err != nil || d.RoomID == "" {
			return // no usable room_id in the payload
		}
		roomID, err := uuid.Parse(d.RoomID)
		if err != nil {
			s.SendError("Invalid room ID format")
			return
		}
		s.hub.JoinRoom(s.id, roomID)
	case wire.TypeJoinQueue:
		s.hub.JoinQueue(s.id)
	case wire.TypeMove:
		roomID, ok := s.room()
		if !ok {
			s.SendError("You are not in a room")
			return
		}
		var d wire.MoveData
		if err := json.Unmarshal(frame.Data, &d); err != nil {
			s.SendError("Invalid move data format")
			return
		}
		s.hub.Move(s.id, roomID, bitboard.Move{From: d.From, To: d.To})
	default:
		// unrecognized types are ignored
	}
}

// heartbeat terminates the session when no liveness signal has been seen for
// hbTimeout; otherwise it probes the peer. A successful ping means the pong
// came back, which counts as liveness.
func (s *Session) heartbeat(ctx context.Context) {
	t := time.NewTicker(s.hbInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if time.Since(time.Unix(0, s.lastSeen.Load())) > s.hbTimeout {
				s.log.Warn("heartbeat_timeout")
				s.shutdown(websocket.StatusGoingAway, "heartbeat timeout")
				return
			}
			pctx, cancel := context.WithTimeout(ctx, s.hbInterval)
			if err := s.conn.Ping(pctx); err == nil {
				s.touch()
			}
			cancel()
		}
	}
}

func (s *Session) touch() { s.lastSeen.Store(time.Now().UnixNano()) }

func (s *Session) room() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID == nil {
		return uuid.UUID{}, false
	}
	return *s.roomID, true
}

// shutdown notifies the hub once and closes the socket. Safe to call from
// both the read loop and the heartbeat.
func (s *Session) shutdown(code websocket.StatusCode, reason string) {
	s.stopOnce.Do(func() {
		s.hub.Disconnect(s.id)
		_ = s.conn.Close(code, reason)
	})
}

// RoomJoined implements game.Pusher. It records the seat so later move
// frames can be routed, then confirms to the client.
func (s *Session) RoomJoined(roomID uuid.UUID, color bitboard.Side) {
	s.mu.Lock()
	rid := roomID
	s.roomID = &rid
	s.color = color
	s.mu.Unlock()
	s.push(wire.RoomJoined(roomID.String(), color))
}

// Update implements game.Pusher.
func (s *Session) Update(pieces []bitboard.Piece, turn bitboard.Side) {
	s.push(wire.Update(pieces, turn))
}

// SendError implements game.Pusher.
func (s *Session) SendError(text string) {
	s.push(wire.Error(text))
}

// push serializes one envelope onto the wire. Best-effort: writes to a dying
// connection are dropped, the read loop will notice the failure.
func (s *Session) push(env wire.Envelope) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, s.conn, env); err != nil {
		s.log.Debug("push_dropped", zap.String("type", env.Type), zap.Error(err))
	}
}
