package session_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kapu/chess-relay/internal/config"
	"github.com/kapu/chess-relay/internal/hub"
	"github.com/kapu/chess-relay/internal/session"
	"github.com/kapu/chess-relay/pkg/wire"
)

// envelope mirrors wire.Envelope with the payload kept raw for inspection.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startRelay(t *testing.T) string {
	t.Helper()
	cfg := &config.AppConfig{
		WSPath:            "/ws",
		AllowedOrigins:    []string{"*"},
		HeartbeatInterval: time.Second,
		HeartbeatTimeout:  5 * time.Second,
	}
	h := hub.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	srv := httptest.NewServer(session.Handler(h, cfg))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, url string) *client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return &client{t: t, conn: conn}
}

func (c *client) send(frameType string, data any) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(c.t, wsjson.Write(ctx, c.conn, wire.Envelope{Type: frameType, Data: data}))
}

func (c *client) sendRaw(payload []byte) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(c.t, c.conn.Write(ctx, websocket.MessageText, payload))
}

func (c *client) recv() envelope {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var env envelope
	require.NoError(c.t, wsjson.Read(ctx, c.conn, &env))
	return env
}

func (c *client) recvError(want string) {
	c.t.Helper()
	env := c.recv()
	require.Equal(c.t, wire.TypeError, env.Type)
	var text string
	require.NoError(c.t, json.Unmarshal(env.Data, &text))
	assert.Equal(c.t, want, text)
}

func (c *client) recvRoomJoined() wire.RoomJoinedData {
	c.t.Helper()
	env := c.recv()
	require.Equal(c.t, wire.TypeRoomJoined, env.Type)
	var d wire.RoomJoinedData
	require.NoError(c.t, json.Unmarshal(env.Data, &d))
	return d
}

func (c *client) recvUpdate() wire.UpdateData {
	c.t.Helper()
	env := c.recv()
	require.Equal(c.t, wire.TypeUpdate, env.Type)
	var d wire.UpdateData
	require.NoError(c.t, json.Unmarshal(env.Data, &d))
	return d
}

func TestCreateJoinMoveOverTheWire(t *testing.T) {
	url := startRelay(t)
	a := dial(t, url)
	b := dial(t, url)

	a.send(wire.TypeCreateRoom, nil)
	aj := a.recvRoomJoined()
	assert.Equal(t, "w", aj.Color)
	require.NotEmpty(t, aj.RoomID)

	b.send(wire.TypeJoinRoom, wire.JoinRoomData{RoomID: aj.RoomID})
	bj := b.recvRoomJoined()
	assert.Equal(t, "b", bj.Color)
	assert.Equal(t, aj.RoomID, bj.RoomID)

	a.send(wire.TypeMove, wire.MoveData{From: 12, To: 28})
	for _, c := range []*client{a, b} {
		upd := c.recvUpdate()
		assert.Equal(t, "b", upd.Turn)
		assert.Len(t, upd.Pieces, 32)
		moved := false
		for _, p := range upd.Pieces {
			if p.Position == 28 {
				moved = true
				assert.Equal(t, "p", p.PieceType)
				assert.Equal(t, "w", p.Color)
			}
		}
		assert.True(t, moved, "update must show the relocated pawn")
	}

	// Black to move, but square 12 is empty now: rejected with no broadcast.
	b.send(wire.TypeMove, wire.MoveData{From: 12, To: 28})
	b.recvError("Invalid move")
}

func TestThirdJoinGetsRoomFull(t *testing.T) {
	url := startRelay(t)
	a := dial(t, url)
	b := dial(t, url)
	c := dial(t, url)

	a.send(wire.TypeCreateRoom, nil)
	aj := a.recvRoomJoined()
	b.send(wire.TypeJoinRoom, wire.JoinRoomData{RoomID: aj.RoomID})
	b.recvRoomJoined()

	c.send(wire.TypeJoinRoom, wire.JoinRoomData{RoomID: aj.RoomID})
	c.recvError("Room is full")
}

func TestQueuePairingOverTheWire(t *testing.T) {
	url := startRelay(t)
	a := dial(t, url)
	b := dial(t, url)

	a.send(wire.TypeJoinQueue, nil)
	b.send(wire.TypeJoinQueue, nil)

	aj := a.recvRoomJoined()
	bj := b.recvRoomJoined()
	assert.Equal(t, aj.RoomID, bj.RoomID)
	colors := []string{aj.Color, bj.Color}
	assert.Contains(t, colors, "w")
	assert.Contains(t, colors, "b")
}

func TestLocalProtocolErrors(t *testing.T) {
	url := startRelay(t)
	c := dial(t, url)

	c.sendRaw([]byte("{not json"))
	c.recvError("Invalid message format")

	c.send(wire.TypeJoinRoom, wire.JoinRoomData{RoomID: "not-a-uuid"})
	c.recvError("Invalid room ID format")

	c.send(wire.TypeMove, wire.MoveData{From: 12, To: 28})
	c.recvError("You are not in a room")

	c.send(wire.TypeJoinRoom, uuid4Missing{})
	// no usable room_id: silently ignored, nothing to read

	c.send("mystery_frame", nil)
	// unrecognized type: silently ignored

	// The connection is still healthy after all of the above.
	c.send(wire.TypeCreateRoom, nil)
	j := c.recvRoomJoined()
	assert.Equal(t, "w", j.Color)
}

// uuid4Missing marshals to an object without a room_id key.
type uuid4Missing struct{}

func TestMalformedMoveData(t *testing.T) {
	url := startRelay(t)
	c := dial(t, url)

	c.send(wire.TypeCreateRoom, nil)
	c.recvRoomJoined()

	c.sendRaw([]byte(`{"type":"move","data":{"from":"e2","to":"e4"}}`))
	c.recvError("Invalid move data format")
}
