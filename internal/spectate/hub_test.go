package spectate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elemental-td/internal/element"
	"elemental-td/internal/sims/sandbox"
	"elemental-td/internal/store"
	"elemental-td/internal/tilemap"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testWorld() *sandbox.World {
	cfg := sandbox.DefaultConfig()
	cfg.Width, cfg.Height = 6, 4
	cfg.Params.RockChance = 0
	cfg.Params.WaterPools = 0
	cfg.Params.SeamLength = 0
	cfg.Params.SpawnInterval = 0
	cfg.Params.TPS = 10
	cfg.Params.DiffusionMillis = 100
	w := sandbox.NewWithConfig(cfg).WithLogger(discard)
	w.Reset(0)
	w.Step()
	return w
}

func cmdMessage(t *testing.T, typ MessageType, payload any) Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return Message{Type: typ, Payload: raw}
}

func next(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "client queue closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message queued")
		return Message{}
	}
}

func nextOfType(t *testing.T, c *Client, typ MessageType) Message {
	t.Helper()
	for i := 0; i < 16; i++ {
		if msg := next(t, c); msg.Type == typ {
			return msg
		}
	}
	t.Fatalf("no %s message", typ)
	return Message{}
}

func register(t *testing.T, h *Hub) *Client {
	t.Helper()
	c, err := h.Register(nil)
	require.NoError(t, err)
	return c
}

func TestJoinSendsSnapshot(t *testing.T) {
	h := NewHub(testWorld(), nil, discard)
	c := register(t, h)
	assert.Equal(t, 1, h.Clients())
	assert.Equal(t, 1, h.Drain(context.Background()))

	msg := next(t, c)
	require.Equal(t, TypeSnapshot, msg.Type)
	var snap SnapshotMessage
	require.NoError(t, json.Unmarshal(msg.Payload, &snap))
	assert.Equal(t, 6, snap.Level.Width)
	assert.Len(t, snap.Level.Tiles, 24)
	assert.NotEmpty(t, snap.Route)
	assert.Equal(t, sandbox.DefaultConfig().Params.StartingGold, snap.Gold)
}

func TestPaintIsAppliedOnDrainAndBroadcast(t *testing.T) {
	w := testWorld()
	h := NewHub(w, nil, discard)
	c := register(t, h)
	other := register(t, h)
	h.Drain(context.Background())
	next(t, c)
	next(t, other)

	rock := tilemap.TileRock
	require.True(t, h.Enqueue(c, cmdMessage(t, TypePaint, PaintCommand{X: 2, Y: 1, Type: &rock})))
	tt, err := w.Map().TileTypeAt(tilemap.Coord(2, 1))
	require.NoError(t, err)
	assert.Equal(t, tilemap.TileBarren, tt, "commands wait for Drain")

	assert.Equal(t, 1, h.Drain(context.Background()))
	w.Step()

	for _, viewer := range []*Client{c, other} {
		msg := next(t, viewer)
		require.Equal(t, TypeFrame, msg.Type)
		var frame FrameMessage
		require.NoError(t, json.Unmarshal(msg.Payload, &frame))
		var found bool
		for _, u := range frame.Tiles {
			if u.Index == 8 {
				found = true
				assert.Equal(t, tilemap.TileRock, u.Type)
			}
		}
		assert.True(t, found, "painted tile is in the frame")
	}
}

func TestApplyCommandCharges(t *testing.T) {
	w := testWorld()
	h := NewHub(w, nil, discard)
	c := register(t, h)
	h.Drain(context.Background())
	next(t, c)

	require.True(t, h.Enqueue(c, ApplyMessage(1, 1, element.Water, 30)))
	h.Drain(context.Background())
	w.Step()

	a, err := w.Map().AfflictionAt(tilemap.Coord(1, 1))
	require.NoError(t, err)
	assert.Equal(t, uint32(30), a.Amount(element.Water))

	require.True(t, h.Enqueue(c, cmdMessage(t, TypeApply, ApplyCommand{X: 1, Y: 1, Affliction: element.Single(element.Water, 10), Remove: true})))
	h.Drain(context.Background())
	w.Step()
	a, err = w.Map().AfflictionAt(tilemap.Coord(1, 1))
	require.NoError(t, err)
	assert.Equal(t, uint32(20), a.Amount(element.Water))
}

func TestRejectedCommandsReplyWithErrors(t *testing.T) {
	w := testWorld()
	h := NewHub(w, nil, discard)
	c := register(t, h)
	h.Drain(context.Background())
	next(t, c)

	cases := []struct {
		msg  Message
		code string
	}{
		{Message{Type: "dance"}, "unknown_command"},
		{Message{Type: TypePaint}, "bad_payload"},
		{Message{Type: TypeEntry, Payload: json.RawMessage(`"x"`)}, "bad_payload"},
		{cmdMessage(t, TypeExit, PointCommand{X: 40, Y: 1}), "out_of_bounds"},
		{cmdMessage(t, TypeResize, ResizeCommand{W: -1, H: 2}), "invalid_operation"},
		{cmdMessage(t, TypeResize, ResizeCommand{W: 1 << 31, H: 1 << 31}), "invalid_operation"},
		{cmdMessage(t, TypeResize, ResizeCommand{W: tilemap.MaxTiles, H: 2}), "invalid_operation"},
		{cmdMessage(t, TypeSave, LevelCommand{Name: "x"}), "storage_disabled"},
		{Message{Type: TypeList}, "storage_disabled"},
	}
	for _, tc := range cases {
		require.True(t, h.Enqueue(c, tc.msg))
		h.Drain(context.Background())
		msg := next(t, c)
		require.Equal(t, TypeError, msg.Type, tc.code)
		var e ErrorMessage
		require.NoError(t, json.Unmarshal(msg.Payload, &e))
		assert.Equal(t, tc.code, e.Code)
	}
	assert.Equal(t, tilemap.Dimensions{W: 6, H: 4}, w.Map().Dimensions())
	assert.Equal(t, 24, w.Map().TileCount())
}

func TestSaveAndLoadThroughStorage(t *testing.T) {
	levels, err := store.NewJSONStore(filepath.Join(t.TempDir(), "levels.json"))
	require.NoError(t, err)
	w := testWorld()
	h := NewHub(w, levels, discard)
	c := register(t, h)
	ctx := context.Background()
	h.Drain(ctx)
	next(t, c)

	require.True(t, h.Enqueue(c, cmdMessage(t, TypeSave, LevelCommand{Name: "clean"})))
	h.Drain(ctx)
	names, err := levels.ListLevels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"clean"}, names)

	void := tilemap.TileVoid
	require.True(t, h.Enqueue(c, cmdMessage(t, TypePaint, PaintCommand{X: 2, Y: 1, Type: &void})))
	h.Drain(ctx)
	w.Step()
	nextOfType(t, c, TypeFrame)

	require.True(t, h.Enqueue(c, cmdMessage(t, TypeLoad, LevelCommand{Name: "clean"})))
	h.Drain(ctx)
	w.Step()

	msg := nextOfType(t, c, TypeSnapshot)
	var snap SnapshotMessage
	require.NoError(t, json.Unmarshal(msg.Payload, &snap))
	assert.Equal(t, tilemap.TileBarren, snap.Level.Tiles[8].Type)

	require.True(t, h.Enqueue(c, Message{Type: TypeList}))
	h.Drain(ctx)
	msg = next(t, c)
	require.Equal(t, TypeLevels, msg.Type)
	assert.JSONEq(t, `["clean"]`, string(msg.Payload))

	require.True(t, h.Enqueue(c, cmdMessage(t, TypeLoad, LevelCommand{Name: "missing"})))
	h.Drain(ctx)
	msg = next(t, c)
	require.Equal(t, TypeError, msg.Type)
	assert.Contains(t, string(msg.Payload), "level_not_found")
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := NewHub(testWorld(), nil, discard)
	c := register(t, h)
	h.Unregister(c)
	h.Unregister(c)
	assert.Zero(t, h.Clients())

	h.Drain(context.Background())
	_, ok := <-c.send
	assert.False(t, ok, "join snapshot is not delivered after leaving")
}

func TestRegisterRejectsWhenQueueIsFull(t *testing.T) {
	h := NewHub(testWorld(), nil, discard)
	register(t, h)
	ghost := newClient(h, nil)
	for h.Enqueue(ghost, Message{Type: TypeList}) {
	}

	done := make(chan error, 1)
	go func() {
		_, err := h.Register(nil)
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrBusy)
	case <-time.After(time.Second):
		t.Fatal("Register blocked on a full queue")
	}
	assert.Equal(t, 1, h.Clients())

	h.Drain(context.Background())
	_, err := h.Register(nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, h.Clients())
}

func TestWebsocketSession(t *testing.T) {
	h := NewHub(testWorld(), nil, discard)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, 100) }()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, TypeSnapshot, msg.Type)

	water := tilemap.TileWater
	require.NoError(t, conn.WriteJSON(cmdMessage(t, TypePaint, PaintCommand{X: 0, Y: 0, Type: &water})))

	for {
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != TypeFrame {
			continue
		}
		var frame FrameMessage
		require.NoError(t, json.Unmarshal(msg.Payload, &frame))
		if len(frame.Tiles) > 0 && frame.Tiles[0].Index == 0 && frame.Tiles[0].Type == tilemap.TileWater {
			break
		}
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
