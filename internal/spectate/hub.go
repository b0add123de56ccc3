package spectate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"elemental-td/internal/core"
	"elemental-td/internal/element"
	"elemental-td/internal/pathing"
	"elemental-td/internal/sims/sandbox"
	"elemental-td/internal/store"
	"elemental-td/internal/tilemap"
)

// DefaultQueueSize bounds the number of commands waiting for the
// simulation goroutine.
const DefaultQueueSize = 1024

var errNoStorage = errors.New("level storage is disabled")

// ErrBusy is returned by Register when the command queue cannot take the
// join request.
var ErrBusy = errors.New("spectate: command queue full")

type command struct {
	client *Client
	msg    Message
	join   bool
}

// Hub owns the set of connected viewers. Network goroutines only enqueue;
// the world is touched exclusively from the goroutine that calls Drain and
// Step, which is Run's goroutine in a server.
type Hub struct {
	log    *slog.Logger
	world  *sandbox.World
	levels store.Storage

	upgrader websocket.Upgrader
	commands chan command

	mu      sync.Mutex
	clients map[*Client]struct{}

	lastGold int
}

// NewHub subscribes to world frames. levels may be nil, which disables the
// save, load and list commands.
func NewHub(world *sandbox.World, levels store.Storage, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		log:    logger,
		world:  world,
		levels: levels,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		commands: make(chan command, DefaultQueueSize),
		clients:  make(map[*Client]struct{}),
		lastGold: world.Roster().Treasury().Gold(),
	}
	world.OnFrame(h.publish)
	return h
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	c, err := h.Register(conn)
	if err != nil {
		h.log.Warn("viewer rejected", "remote", conn.RemoteAddr().String(), "err", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "busy"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.log.Info("viewer connected", "remote", conn.RemoteAddr().String(), "viewers", h.Clients())
	go c.writePump()
	c.readPump()
}

// Register adds a client and queues its initial snapshot. It never blocks:
// a full queue yields ErrBusy and the client is not added.
func (h *Hub) Register(conn *websocket.Conn) (*Client, error) {
	c := newClient(h, conn)
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	select {
	case h.commands <- command{client: c, join: true}:
		return c, nil
	default:
		h.Unregister(c)
		return nil, ErrBusy
	}
}

// Unregister drops a client and closes its send queue. Calling it twice is
// harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Clients reports the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Enqueue queues msg from c without blocking. It reports false when the
// queue is full.
func (h *Hub) Enqueue(c *Client, msg Message) bool {
	select {
	case h.commands <- command{client: c, msg: msg}:
		return true
	default:
		return false
	}
}

// Drain applies every queued command and returns how many ran. It must be
// called from the simulation goroutine.
func (h *Hub) Drain(ctx context.Context) int {
	n := 0
	for {
		select {
		case cmd := <-h.commands:
			h.handle(ctx, cmd)
			n++
		default:
			return n
		}
	}
}

// Run drains commands and steps the world at tps until ctx is done.
func (h *Hub) Run(ctx context.Context, tps int) error {
	ticker := core.NewFixedStep(tps).NewTicker()
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case <-ticker.C:
			h.Drain(ctx)
			h.world.Step()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) handle(ctx context.Context, cmd command) {
	c := cmd.client
	if cmd.join {
		h.sendSnapshot(c)
		return
	}
	if err := h.apply(ctx, c, cmd.msg); err != nil {
		h.log.Debug("command rejected", "type", cmd.msg.Type, "err", err)
		if c != nil {
			c.reply(TypeError, ErrorMessage{Code: errorCode(err), Message: err.Error()})
		}
	}
}

func (h *Hub) apply(ctx context.Context, c *Client, msg Message) error {
	switch msg.Type {
	case TypePaint:
		var p PaintCommand
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		return h.world.Paint(tilemap.Coord(p.X, p.Y), tilemap.TilePatch{Type: p.Type, Structure: p.Structure})
	case TypeApply:
		var p ApplyCommand
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		if p.Remove {
			return h.world.RemoveElement(tilemap.Coord(p.X, p.Y), p.Affliction)
		}
		return h.world.ApplyElement(tilemap.Coord(p.X, p.Y), p.Affliction)
	case TypeResize:
		var p ResizeCommand
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		dims := tilemap.Dimensions{W: p.W, H: p.H}
		if err := dims.Validate(); err != nil {
			return err
		}
		return h.world.Resize(dims)
	case TypeEntry, TypeExit:
		var p PointCommand
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		if msg.Type == TypeEntry {
			return h.world.SetEntry(tilemap.Coord(p.X, p.Y))
		}
		return h.world.SetExit(tilemap.Coord(p.X, p.Y))
	case TypeSave:
		var p LevelCommand
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		if h.levels == nil {
			return errNoStorage
		}
		if err := h.levels.SaveLevel(ctx, h.world.Snapshot(p.Name)); err != nil {
			return err
		}
		h.log.Info("level saved", "name", p.Name)
		return nil
	case TypeLoad:
		var p LevelCommand
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		if h.levels == nil {
			return errNoStorage
		}
		s, err := h.levels.LoadLevel(ctx, p.Name)
		if err != nil {
			return err
		}
		return h.world.LoadSnapshot(s)
	case TypeList:
		if h.levels == nil {
			return errNoStorage
		}
		names, err := h.levels.ListLevels(ctx)
		if err != nil {
			return err
		}
		if c != nil {
			c.reply(TypeLevels, names)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", msg.Type, errUnknownCommand)
	}
}

var (
	errUnknownCommand = errors.New("unknown command")
	errBadPayload     = errors.New("bad payload")
)

func decodePayload(msg Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: missing payload: %w", msg.Type, errBadPayload)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s: %v: %w", msg.Type, err, errBadPayload)
	}
	return nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errUnknownCommand):
		return "unknown_command"
	case errors.Is(err, errBadPayload):
		return "bad_payload"
	case errors.Is(err, tilemap.ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, tilemap.ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, store.ErrLevelNotFound):
		return "level_not_found"
	case errors.Is(err, errNoStorage):
		return "storage_disabled"
	default:
		return "internal"
	}
}

func (h *Hub) snapshotMessage() SnapshotMessage {
	return SnapshotMessage{
		Tick:  h.world.Tick(),
		Level: h.world.Snapshot(""),
		Route: routeSteps(h.world.Route()),
		Units: unitStates(h.world.Roster().Units()),
		Gold:  h.world.Roster().Treasury().Gold(),
	}
}

func (h *Hub) sendSnapshot(c *Client) {
	data, err := encode(TypeSnapshot, h.snapshotMessage())
	if err != nil {
		h.log.Error("encode snapshot", "err", err)
		return
	}
	h.deliver(c, data)
}

// publish runs on the simulation goroutine after every Step.
func (h *Hub) publish(f sandbox.Frame) {
	if h.Clients() == 0 {
		h.lastGold = f.Gold
		return
	}
	if f.Resized {
		data, err := encode(TypeSnapshot, h.snapshotMessage())
		if err != nil {
			h.log.Error("encode snapshot", "err", err)
			return
		}
		h.lastGold = f.Gold
		h.broadcast(data)
		return
	}

	changed := f.Changed()
	quiet := len(changed) == 0 && !f.RouteChanged && len(f.Units) == 0 &&
		len(f.Reaped) == 0 && len(f.Leaked) == 0 && f.Gold == h.lastGold
	h.lastGold = f.Gold
	if quiet {
		return
	}

	msg := FrameMessage{
		Tick:      f.Tick,
		Tiles:     make([]TileUpdate, 0, len(changed)),
		Units:     unitStates(f.Units),
		Gold:      f.Gold,
		Reactions: len(f.Reactions),
		Reaped:    f.Reaped,
		Leaked:    f.Leaked,
	}
	m := h.world.Map()
	for _, idx := range changed {
		rec, err := m.Record(idx)
		if err != nil {
			continue
		}
		msg.Tiles = append(msg.Tiles, TileUpdate{Index: idx, TileRecord: rec})
	}
	if f.RouteChanged {
		msg.Route = routeSteps(f.Route)
		msg.RouteLost = !f.Route.Found
	}
	data, err := encode(TypeFrame, msg)
	if err != nil {
		h.log.Error("encode frame", "tick", f.Tick, "err", err)
		return
	}
	h.broadcast(data)
}

func routeSteps(r pathing.Route) []tilemap.Coordinate {
	if !r.Found {
		return nil
	}
	return r.Steps
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.deliverLocked(c, data)
	}
}

func (h *Hub) deliver(c *Client, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(c, data)
}

// deliverLocked drops clients that cannot keep up.
func (h *Hub) deliverLocked(c *Client, data []byte) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		delete(h.clients, c)
		close(c.send)
		h.log.Warn("dropping slow viewer")
	}
}

// ApplyMessage builds an apply command envelope charging one element.
func ApplyMessage(x, y int, e element.Element, amount uint32) Message {
	payload, _ := json.Marshal(ApplyCommand{X: x, Y: y, Affliction: element.Single(e, amount)})
	return Message{Type: TypeApply, Payload: payload}
}
