package haunt

import "sync"

const (
	// MinLevel is where every process starts.
	MinLevel = 1
	// MaxLevel caps escalation.
	MaxLevel = 10
	// TicksPerLevel heartbeats raise the level by one.
	TicksPerLevel = 4
	// HistorySize utterances are remembered.
	HistorySize = 5
	// RepeatWindow most recent utterances are never reused by the fallback.
	RepeatWindow = 3
)

// State is the process-wide haunt: an escalating level and the last few
// utterances. It never decreases and is only reset by a restart.
type State struct {
	mu     sync.Mutex
	level  int
	ticks  int
	recent []string
}

// NewState returns a state at level 1 with no history.
func NewState() *State {
	return &State{
		level:  MinLevel,
		recent: make([]string, 0, HistorySize),
	}
}

// Tick counts one heartbeat and returns the level after it.
func (s *State) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticks++
	if s.ticks%TicksPerLevel == 0 && s.level < MaxLevel {
		s.level++
	}
	return s.level
}

// Level returns the current level.
func (s *State) Level() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Ticks returns the number of heartbeats seen.
func (s *State) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Record appends an utterance, keeping the newest HistorySize.
func (s *State) Record(utterance string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(utterance)
}

func (s *State) record(utterance string) {
	if utterance == "" {
		return
	}
	s.recent = append(s.recent, utterance)
	if over := len(s.recent) - HistorySize; over > 0 {
		s.recent = append(s.recent[:0], s.recent[over:]...)
	}
}

// SelectAndRecord picks a fallback line from pool that is not among the
// last window utterances and records it, under one lock hold so concurrent
// heartbeats cannot pick the same line.
func (s *State) SelectAndRecord(pool []string, window int, pick func(n int) int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := SelectFallback(pool, s.recent, window, pick)
	s.record(line)
	return line
}

// Recent returns a copy of the last n utterances, oldest first. n <= 0
// returns all of them.
func (s *State) Recent(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if n > 0 && n < len(s.recent) {
		start = len(s.recent) - n
	}
	out := make([]string, len(s.recent)-start)
	copy(out, s.recent[start:])
	return out
}
