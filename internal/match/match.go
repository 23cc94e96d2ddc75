// Package match runs one authoritative game instance.
//
// A Match owns its model exclusively: connections never touch it directly
// but post messages into the inbox, and the Run loop interleaves those
// messages with fixed-rate simulation ticks on a single goroutine.
package match

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Nertsal/trail-blazer/internal/config"
	"github.com/Nertsal/trail-blazer/internal/game"
	"github.com/Nertsal/trail-blazer/internal/protocol"
	"github.com/Nertsal/trail-blazer/internal/ranking"
)

const (
	inboxSize         = 256
	maxNameLength     = 24
	pongTimeoutFactor = 6
)

// Conn is the outbound half of a client connection.
// Send must not block; an error drops the client.
type Conn interface {
	Send(data []byte, binary bool) error
	Close() error
}

// Recorder journals game events.
type Recorder interface {
	Record(matchID string, turn game.Turns, events []game.GameEvent) int
}

// Metrics receives match telemetry.
type Metrics interface {
	ObserveTick(d time.Duration)
	ObserveEvents(events []game.GameEvent)
	SetPopulation(players, spectators int)
}

// Inbox messages.
type (
	Join struct {
		ID    game.ClientID
		Conn  Conn
		Codec protocol.Codec
	}
	Leave struct {
		ID game.ClientID
	}
	Submit struct {
		ID   game.ClientID
		Move game.PlayerMove
	}
	Customize struct {
		ID            game.ClientID
		Customization game.PlayerCustomization
	}
	Spectate struct {
		ID game.ClientID
	}
	Pong struct {
		ID game.ClientID
	}
)

// Snapshot is a read-only view of the match for HTTP handlers.
type Snapshot struct {
	MatchID    string            `json:"matchId"`
	Tick       uint64            `json:"tick"`
	Players    int               `json:"players"`
	Spectators int               `json:"spectators"`
	Model      *game.SharedModel `json:"model"`
	TakenAt    time.Time         `json:"takenAt"`
}

// Options wires a Match to its collaborators.
type Options struct {
	TickInterval time.Duration
	PingInterval time.Duration
	MaxPlayers   int
	Journal      Recorder // optional
	Metrics      Metrics  // optional
	Log          *zap.SugaredLogger
}

type client struct {
	id       game.ClientID
	conn     Conn
	codec    protocol.Codec
	lastPong time.Time
}

// Match is a single-threaded game actor.
type Match struct {
	id   string
	opts Options
	log  *zap.SugaredLogger

	model       *game.ServerModel
	clients     map[game.ClientID]*client
	leaderboard *ranking.Leaderboard

	inbox    chan any
	nextID   atomic.Int64
	tick     uint64
	lastPing time.Time

	// Set when the roster changed and everyone needs a Sync.
	rosterDirty bool

	snapshot atomic.Pointer[Snapshot]
}

// New creates a match around model.
func New(model *game.SharedModel, opts Options) *Match {
	if opts.TickInterval <= 0 {
		opts.TickInterval = config.DefaultServer().TickInterval()
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 5 * time.Second
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = config.DefaultLimits().MaxPlayers
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}

	id := uuid.NewString()
	m := &Match{
		id:          id,
		opts:        opts,
		log:         opts.Log.With("match", id),
		model:       game.NewServerModel(model),
		clients:     make(map[game.ClientID]*client),
		leaderboard: ranking.NewLeaderboard(),
		inbox:       make(chan any, inboxSize),
	}
	m.publish()
	return m
}

// NewModel generates the arena of a new match.
func NewModel(cfg config.MatchConfig) *game.SharedModel {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	m := game.NewMap(game.V(int64(cfg.MapWidth), int64(cfg.MapHeight)))
	model := game.NewSharedModel(m, rng)
	m.PlaceWalls(rng, cfg.Walls, model.Bases)
	for i := 0; i < game.MaxMushrooms; i++ {
		model.SpawnMushroom()
	}
	return model
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// NextClientID allocates an id for a new connection. Safe for concurrent use.
func (m *Match) NextClientID() game.ClientID {
	return m.nextID.Add(1)
}

// Post delivers a message to the match loop.
func (m *Match) Post(ctx context.Context, msg any) error {
	select {
	case m.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the latest published state. Safe for concurrent use.
func (m *Match) Snapshot() *Snapshot {
	return m.snapshot.Load()
}

// Leaderboard returns the live ranking. Safe for concurrent use.
func (m *Match) Leaderboard() *ranking.Leaderboard {
	return m.leaderboard
}

// Run drives the match until ctx is cancelled.
func (m *Match) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.TickInterval)
	defer ticker.Stop()

	m.log.Infow("match started", "tick", m.opts.TickInterval, "maxPlayers", m.opts.MaxPlayers)
	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return ctx.Err()
		case msg := <-m.inbox:
			m.handle(msg)
			m.flushRoster()
		case now := <-ticker.C:
			m.step(now)
		}
	}
}

func (m *Match) handle(msg any) {
	switch msg := msg.(type) {
	case Join:
		m.join(msg)
	case Leave:
		m.drop(msg.ID, "disconnected")
	case Submit:
		if !m.model.QueueMove(msg.ID, msg.Move) {
			m.sendTo(msg.ID, protocol.Error("move rejected"))
		}
	case Customize:
		m.customize(msg.ID, msg.Customization)
	case Spectate:
		if _, ok := m.model.Shared.Players[msg.ID]; ok {
			m.model.RemovePlayer(msg.ID)
			m.rosterDirty = true
		}
	case Pong:
		if c, ok := m.clients[msg.ID]; ok {
			c.lastPong = time.Now()
		}
	default:
		m.log.Warnw("unexpected inbox message", "type", fmt.Sprintf("%T", msg))
	}
}

func (m *Match) join(msg Join) {
	c := &client{id: msg.ID, conn: msg.Conn, codec: msg.Codec, lastPong: time.Now()}
	m.clients[msg.ID] = c
	m.log.Infow("client joined", "client", msg.ID, "codec", msg.Codec.Name())

	setup := protocol.Setup(msg.ID, m.id, m.model.Shared.Clone())
	if !m.send(c, setup) || !m.send(c, protocol.Ping()) {
		m.drop(msg.ID, "send failed")
	}
}

func (m *Match) customize(id game.ClientID, c game.PlayerCustomization) {
	if _, ok := m.clients[id]; !ok {
		return
	}
	if !c.Character.Valid() || c.Name == "" || utf8.RuneCountInString(c.Name) > maxNameLength {
		m.sendTo(id, protocol.Error("invalid customization"))
		return
	}
	if c.Color == "" {
		c.Color = c.Character.Color()
	}

	if m.model.Shared.SetCustomization(id, c) {
		m.broadcast(protocol.PlayerCustomization(id, c))
		return
	}
	if len(m.model.Shared.Players) >= m.opts.MaxPlayers {
		m.sendTo(id, protocol.Error("match is full"))
		return
	}
	p := m.model.Shared.AddPlayer(id, c)
	m.log.Infow("player spawned", "client", id, "name", c.Name, "pos", p.Pos)
	m.rosterDirty = true
}

// drop disconnects a client and removes its player.
func (m *Match) drop(id game.ClientID, reason string) {
	c, ok := m.clients[id]
	if !ok {
		return
	}
	delete(m.clients, id)
	if err := c.conn.Close(); err != nil {
		m.log.Debugw("closing connection", "client", id, "error", err)
	}
	if _, ok := m.model.Shared.Players[id]; ok {
		m.model.RemovePlayer(id)
		m.leaderboard.Remove(id)
		m.rosterDirty = true
	}
	m.log.Infow("client left", "client", id, "reason", reason)
}

// step runs one simulation tick.
func (m *Match) step(now time.Time) {
	start := time.Now()
	m.tick++

	events := m.model.Tick(m.opts.TickInterval)
	if len(events) > 0 {
		if m.opts.Journal != nil {
			m.opts.Journal.Record(m.id, m.model.Shared.TurnCurrent, events)
		}
		m.opts.Metrics.ObserveEvents(events)
		m.announce(events)
	}

	if now.Sub(m.lastPing) >= m.opts.PingInterval {
		m.lastPing = now
		m.dropSilent(now)
		m.broadcast(protocol.Ping())
	}
	m.flushRoster()
	m.opts.Metrics.ObserveTick(time.Since(start))
}

// announce sends the phase boundaries and the raw events of a tick.
func (m *Match) announce(events []game.GameEvent) {
	for _, e := range events {
		switch e.Kind {
		case game.EventStartResolution:
			m.broadcast(protocol.StartResolution(m.model.Shared.Clone()))
		case game.EventFinishResolution:
			m.leaderboard.Sync(m.model.Shared.Players)
			m.broadcast(protocol.FinishResolution(m.model.Shared.Clone()))
			m.log.Debugw("turn finished", "turn", m.model.Shared.TurnCurrent, "phase", m.model.Shared.Phase.Kind)
		case game.EventResultsOver:
			m.leaderboard.Sync(m.model.Shared.Players)
			m.rosterDirty = true
			m.log.Infow("match restarted")
		}
	}
	m.broadcast(protocol.Events(events))
}

// dropSilent disconnects clients that stopped answering pings.
func (m *Match) dropSilent(now time.Time) {
	for id, c := range m.clients {
		if now.Sub(c.lastPong) > pongTimeoutFactor*m.opts.PingInterval {
			m.drop(id, "ping timeout")
		}
	}
}

func (m *Match) flushRoster() {
	if m.rosterDirty {
		m.rosterDirty = false
		m.leaderboard.Sync(m.model.Shared.Players)
		m.broadcast(protocol.Sync(m.model.Shared.Clone()))
	}
	m.publish()
}

func (m *Match) publish() {
	players := len(m.model.Shared.Players)
	spectators := 0
	for id := range m.clients {
		if _, ok := m.model.Shared.Players[id]; !ok {
			spectators++
		}
	}
	m.opts.Metrics.SetPopulation(players, spectators)
	m.snapshot.Store(&Snapshot{
		MatchID:    m.id,
		Tick:       m.tick,
		Players:    players,
		Spectators: spectators,
		Model:      m.model.Shared.Clone(),
		TakenAt:    time.Now(),
	})
}

// broadcast encodes msg once per codec and sends it to every client.
func (m *Match) broadcast(msg protocol.ServerMessage) {
	encoded := make(map[string][]byte, len(protocol.Codecs))
	var failed []game.ClientID
	for id, c := range m.clients {
		data, ok := encoded[c.codec.Name()]
		if !ok {
			var err error
			data, err = c.codec.Encode(msg)
			if err != nil {
				m.log.Errorw("encoding broadcast", "type", msg.Type, "codec", c.codec.Name(), "error", err)
				return
			}
			encoded[c.codec.Name()] = data
		}
		if err := c.conn.Send(data, c.codec.Binary()); err != nil {
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		m.drop(id, "send failed")
	}
}

func (m *Match) sendTo(id game.ClientID, msg protocol.ServerMessage) {
	if c, ok := m.clients[id]; ok && !m.send(c, msg) {
		m.drop(id, "send failed")
	}
}

func (m *Match) send(c *client, msg protocol.ServerMessage) bool {
	data, err := c.codec.Encode(msg)
	if err != nil {
		m.log.Errorw("encoding message", "type", msg.Type, "error", err)
		return true
	}
	return c.conn.Send(data, c.codec.Binary()) == nil
}

func (m *Match) shutdown() {
	for id := range m.clients {
		m.drop(id, "shutdown")
	}
	m.log.Infow("match stopped", "ticks", m.tick)
}

type nopMetrics struct{}

func (nopMetrics) ObserveTick(time.Duration)      {}
func (nopMetrics) ObserveEvents([]game.GameEvent) {}
func (nopMetrics) SetPopulation(int, int)         {}
