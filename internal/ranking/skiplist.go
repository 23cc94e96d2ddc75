// Package ranking keeps players ordered by score.
//
// The ordering lives in a skip list with span counts on every forward
// pointer, so rank lookups and rank ranges are O(log n) (Pugh 1990, the same
// layout Redis uses for sorted sets).
package ranking

import (
	"math/rand"
	"sync"
)

const (
	maxLevel         = 32
	levelProbability = 0.25
)

// SkipListEntry is one ranked key.
type SkipListEntry struct {
	Key   int64
	Score int
}

type skipNode struct {
	entry SkipListEntry
	next  []*skipNode
	span  []int // number of bottom-level steps each forward pointer skips
}

// before reports whether n ranks ahead of (score, key).
// Higher scores come first, ties go to the lower key.
func (n *skipNode) before(score int, key int64) bool {
	return n.entry.Score > score || (n.entry.Score == score && n.entry.Key < key)
}

// SkipList is a concurrent skip list ordered by descending score.
// Keys are unique; inserting an existing key moves it.
type SkipList struct {
	mu     sync.RWMutex
	head   *skipNode
	level  int
	length int
	scores map[int64]int
	rng    *rand.Rand
}

// NewSkipList creates an empty list.
func NewSkipList() *SkipList {
	return &SkipList{
		head: &skipNode{
			next: make([]*skipNode, maxLevel),
			span: make([]int, maxLevel),
		},
		level:  1,
		scores: make(map[int64]int),
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}
}

func (sl *SkipList) randomLevel() int {
	level := 1
	for level < maxLevel && sl.rng.Float64() < levelProbability {
		level++
	}
	return level
}

// Insert adds key or moves it to its new score.
func (sl *SkipList) Insert(key int64, score int) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if old, ok := sl.scores[key]; ok {
		if old == score {
			return
		}
		sl.delete(key, old)
	}
	sl.insert(key, score)
	sl.scores[key] = score
}

func (sl *SkipList) insert(key int64, score int) {
	var update [maxLevel]*skipNode
	var rank [maxLevel]int

	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		if i < sl.level-1 {
			rank[i] = rank[i+1]
		}
		for x.next[i] != nil && x.next[i].before(score, key) {
			rank[i] += x.span[i]
			x = x.next[i]
		}
		update[i] = x
	}

	level := sl.randomLevel()
	if level > sl.level {
		for i := sl.level; i < level; i++ {
			rank[i] = 0
			update[i] = sl.head
			update[i].span[i] = sl.length
		}
		sl.level = level
	}

	node := &skipNode{
		entry: SkipListEntry{Key: key, Score: score},
		next:  make([]*skipNode, level),
		span:  make([]int, level),
	}
	for i := 0; i < level; i++ {
		node.next[i] = update[i].next[i]
		update[i].next[i] = node
		node.span[i] = update[i].span[i] - (rank[0] - rank[i])
		update[i].span[i] = rank[0] - rank[i] + 1
	}
	for i := level; i < sl.level; i++ {
		update[i].span[i]++
	}
	sl.length++
}

// Remove deletes key and reports whether it was present.
func (sl *SkipList) Remove(key int64) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	score, ok := sl.scores[key]
	if !ok {
		return false
	}
	delete(sl.scores, key)
	return sl.delete(key, score)
}

func (sl *SkipList) delete(key int64, score int) bool {
	var update [maxLevel]*skipNode
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && x.next[i].before(score, key) {
			x = x.next[i]
		}
		update[i] = x
	}

	x = x.next[0]
	if x == nil || x.entry.Key != key {
		return false
	}
	for i := 0; i < sl.level; i++ {
		if update[i].next[i] == x {
			update[i].span[i] += x.span[i] - 1
			update[i].next[i] = x.next[i]
		} else {
			update[i].span[i]--
		}
	}
	for sl.level > 1 && sl.head.next[sl.level-1] == nil {
		sl.level--
	}
	sl.length--
	return true
}

// Rank returns the 1-based rank of key, or 0 if it is not in the list.
func (sl *SkipList) Rank(key int64) int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	score, ok := sl.scores[key]
	if !ok {
		return 0
	}
	rank := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && (x.next[i].before(score, key) || x.next[i].entry.Key == key) {
			rank += x.span[i]
			x = x.next[i]
		}
		if x != sl.head && x.entry.Key == key {
			return rank
		}
	}
	return 0
}

// Score returns the score stored for key.
func (sl *SkipList) Score(key int64) (int, bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	score, ok := sl.scores[key]
	return score, ok
}

// ByRank returns the entry at a 1-based rank.
func (sl *SkipList) ByRank(rank int) (SkipListEntry, bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	if rank <= 0 || rank > sl.length {
		return SkipListEntry{}, false
	}
	traversed := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && traversed+x.span[i] <= rank {
			traversed += x.span[i]
			x = x.next[i]
		}
		if traversed == rank {
			return x.entry, true
		}
	}
	return SkipListEntry{}, false
}

// Range returns the entries ranked start..end inclusive (1-based).
func (sl *SkipList) Range(start, end int) []SkipListEntry {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	if start <= 0 {
		start = 1
	}
	if end > sl.length {
		end = sl.length
	}
	if start > end {
		return nil
	}

	traversed := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && traversed+x.span[i] < start {
			traversed += x.span[i]
			x = x.next[i]
		}
	}

	result := make([]SkipListEntry, 0, end-start+1)
	for x = x.next[0]; x != nil && traversed < end; x = x.next[0] {
		traversed++
		result = append(result, x.entry)
	}
	return result
}

// Len returns the number of entries.
func (sl *SkipList) Len() int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.length
}

// Keys returns every key in the list, unordered.
func (sl *SkipList) Keys() []int64 {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	keys := make([]int64, 0, len(sl.scores))
	for k := range sl.scores {
		keys = append(keys, k)
	}
	return keys
}

// Clear removes all entries.
func (sl *SkipList) Clear() {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	for i := range sl.head.next {
		sl.head.next[i] = nil
		sl.head.span[i] = 0
	}
	sl.level = 1
	sl.length = 0
	sl.scores = make(map[int64]int)
}
