// Package journal records game events to an append-only NDJSON file.
//
// Recording never blocks the match loop: events go into a bounded ring
// buffer that a background writer drains in batches. Under load the oldest
// pending events are dropped, and rate limiters cap how much a single
// player (or the whole match) can write.
package journal

import (
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Nertsal/trail-blazer/internal/config"
	"github.com/Nertsal/trail-blazer/internal/game"
)

const (
	batchFlushSize       = 64
	playerLimiterCleanup = 5 * time.Minute
)

// Record is one journaled event.
type Record struct {
	ID      ulid.ULID     `json:"id"`
	MatchID string        `json:"match"`
	Turn    game.Turns    `json:"turn"`
	Kind    string        `json:"kind"`
	Player  game.ClientID `json:"player,omitempty"`
	Cell    game.Vec2     `json:"cell"`
	Count   int           `json:"count,omitempty"`
	Amount  int           `json:"amount,omitempty"`
}

// Stats is a point-in-time view of the journal counters.
type Stats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Written uint64 `json:"written"`
	Pending int    `json:"pending"`
	Running bool   `json:"running"`
}

type playerLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Journal is a bounded, rate-limited event recorder.
type Journal struct {
	cfg config.JournalConfig
	log *zap.SugaredLogger
	out io.WriteCloser

	mu     sync.Mutex
	buffer []Record // most recent records, kept after they are written
	next   int      // slot of the next record
	count  int      // filled slots
	unread int      // records not yet handed to the writer

	globalLimiter  *rate.Limiter
	playerMu       sync.Mutex
	playerLimiters map[game.ClientID]*playerLimiterEntry

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool

	total   atomic.Uint64
	dropped atomic.Uint64
	written atomic.Uint64
}

// New creates a journal writing to out. A nil out keeps records in memory
// only, which is what the debug endpoints and tests use.
func New(cfg config.JournalConfig, out io.WriteCloser, log *zap.SugaredLogger) *Journal {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = config.DefaultJournal().BufferSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = config.DefaultJournal().FlushInterval
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Journal{
		cfg:            cfg,
		log:            log,
		out:            out,
		buffer:         make([]Record, cfg.BufferSize),
		globalLimiter:  newLimiter(cfg.EventsPerSec),
		playerLimiters: make(map[game.ClientID]*playerLimiterEntry),
		stopChan:       make(chan struct{}),
	}
}

// OpenFile returns a size-rotated writer for the configured journal file.
func OpenFile(cfg config.JournalConfig) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
}

func newLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perSec / 10)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSec), burst)
}

// Start launches the background writer.
func (j *Journal) Start() {
	if !j.running.CompareAndSwap(false, true) {
		return
	}
	j.wg.Add(2)
	go j.writerLoop()
	go j.cleanupLoop()
}

// Stop flushes what is pending and closes the output.
func (j *Journal) Stop() {
	j.stopOnce.Do(func() {
		if j.running.Load() {
			close(j.stopChan)
			j.wg.Wait()
			j.running.Store(false)
		}
		if j.out != nil {
			if err := j.out.Close(); err != nil {
				j.log.Warnw("closing journal", "error", err)
			}
		}
	})
}

// Record journals the events of one tick. It returns how many were accepted.
func (j *Journal) Record(matchID string, turn game.Turns, events []game.GameEvent) int {
	accepted := 0
	for _, e := range events {
		if j.record(matchID, turn, e) {
			accepted++
		}
	}
	return accepted
}

func (j *Journal) record(matchID string, turn game.Turns, e game.GameEvent) bool {
	if !j.globalLimiter.Allow() {
		j.dropped.Add(1)
		return false
	}
	if e.Player != 0 && !j.playerLimiter(e.Player).Allow() {
		j.dropped.Add(1)
		return false
	}

	rec := Record{
		ID:      ulid.Make(),
		MatchID: matchID,
		Turn:    turn,
		Kind:    e.Kind.String(),
		Player:  e.Player,
		Cell:    e.Cell,
		Count:   e.Count,
		Amount:  e.Amount,
	}

	j.mu.Lock()
	if j.unread == len(j.buffer) {
		// The writer fell a full buffer behind; the oldest unwritten record is lost.
		j.unread--
		j.dropped.Add(1)
	}
	j.buffer[j.next] = rec
	j.next = (j.next + 1) % len(j.buffer)
	if j.count < len(j.buffer) {
		j.count++
	}
	j.unread++
	j.mu.Unlock()

	j.total.Add(1)
	return true
}

func (j *Journal) playerLimiter(id game.ClientID) *rate.Limiter {
	j.playerMu.Lock()
	defer j.playerMu.Unlock()

	if entry, ok := j.playerLimiters[id]; ok {
		entry.lastUsed = time.Now()
		return entry.limiter
	}
	entry := &playerLimiterEntry{
		limiter:  newLimiter(j.cfg.PlayerEventsPerSec),
		lastUsed: time.Now(),
	}
	j.playerLimiters[id] = entry
	return entry.limiter
}

// Recent returns up to n of the latest records, oldest first.
func (j *Journal) Recent(n int) []Record {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n > j.count {
		n = j.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = j.buffer[(j.next-n+i+len(j.buffer))%len(j.buffer)]
	}
	return out
}

func (j *Journal) writerLoop() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, batchFlushSize)
	for {
		select {
		case <-j.stopChan:
			for {
				batch = j.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				j.flushBatch(batch)
			}
		case <-ticker.C:
			for {
				batch = j.collectBatch(batch[:0])
				if len(batch) == 0 {
					break
				}
				j.flushBatch(batch)
			}
		}
	}
}

func (j *Journal) cleanupLoop() {
	defer j.wg.Done()

	ticker := time.NewTicker(playerLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.cleanupPlayerLimiters(time.Now().Add(-playerLimiterCleanup))
		}
	}
}

func (j *Journal) cleanupPlayerLimiters(cutoff time.Time) {
	j.playerMu.Lock()
	defer j.playerMu.Unlock()
	for id, entry := range j.playerLimiters {
		if entry.lastUsed.Before(cutoff) {
			delete(j.playerLimiters, id)
		}
	}
}

func (j *Journal) collectBatch(batch []Record) []Record {
	j.mu.Lock()
	defer j.mu.Unlock()

	for j.unread > 0 && len(batch) < batchFlushSize {
		batch = append(batch, j.buffer[(j.next-j.unread+len(j.buffer))%len(j.buffer)])
		j.unread--
	}
	return batch
}

// flushBatch appends the batch as newline-delimited JSON.
func (j *Journal) flushBatch(batch []Record) {
	if j.out == nil {
		return
	}
	enc := json.NewEncoder(j.out)
	for _, rec := range batch {
		if err := enc.Encode(rec); err != nil {
			j.log.Warnw("journal write failed", "error", err)
			return
		}
		j.written.Add(1)
	}
}

// Stats returns the journal counters.
func (j *Journal) Stats() Stats {
	j.mu.Lock()
	pending := j.unread
	j.mu.Unlock()

	return Stats{
		Total:   j.total.Load(),
		Dropped: j.dropped.Load(),
		Written: j.written.Load(),
		Pending: pending,
		Running: j.running.Load(),
	}
}
