package haunt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateStartsAtMinLevel(t *testing.T) {
	s := NewState()
	assert.Equal(t, 1, s.Level())
	assert.Empty(t, s.Recent(0))
}

func TestStateEscalation(t *testing.T) {
	s := NewState()

	levels := make([]int, 0, 8)
	for i := 0; i < 8; i++ {
		levels = append(levels, s.Tick())
	}
	assert.Equal(t, []int{1, 1, 1, 2, 2, 2, 2, 3}, levels)
}

func TestStateCapsAtMaxLevel(t *testing.T) {
	s := NewState()
	for i := 0; i < 40; i++ {
		s.Tick()
	}
	assert.Equal(t, 10, s.Level())

	for i := 0; i < 100; i++ {
		assert.Equal(t, 10, s.Tick())
	}
	assert.Equal(t, 10, s.Level())
	assert.Equal(t, 140, s.Ticks())
}

func TestStateConcurrentTicks(t *testing.T) {
	s := NewState()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Tick()
			s.Record("boo")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, s.Ticks())
	assert.Equal(t, 6, s.Level())
	assert.Len(t, s.Recent(0), HistorySize)
}

func TestStateRecentKeepsNewest(t *testing.T) {
	s := NewState()
	for _, u := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		s.Record(u)
	}
	s.Record("")

	assert.Equal(t, []string{"c", "d", "e", "f", "g"}, s.Recent(0))
	assert.Equal(t, []string{"e", "f", "g"}, s.Recent(3))
	assert.Equal(t, []string{"c", "d", "e", "f", "g"}, s.Recent(10))

	// callers get a copy
	got := s.Recent(0)
	got[0] = "mutated"
	assert.Equal(t, "c", s.Recent(0)[0])
}

func TestStateSelectAndRecordRotatesPool(t *testing.T) {
	s := NewState()
	pool := []string{"a", "b", "c", "d"}

	var got []string
	for i := 0; i < 6; i++ {
		got = append(got, s.SelectAndRecord(pool, RepeatWindow, first))
	}

	assert.Equal(t, []string{"a", "b", "c", "d", "a", "b"}, got)
	assert.Equal(t, []string{"b", "c", "d", "a", "b"}, s.Recent(0))
}

func TestStateSelectAndRecordConcurrent(t *testing.T) {
	s := NewState()
	pool := []string{"a", "b", "c", "d"}

	const workers, calls = 8, 50
	counts := make(map[string]int)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				line := s.SelectAndRecord(pool, RepeatWindow, first)
				mu.Lock()
				counts[line]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Serialized selection with a first-picker cycles the pool evenly.
	for _, line := range pool {
		assert.Equal(t, workers*calls/len(pool), counts[line], line)
	}
	recent := s.Recent(RepeatWindow)
	assert.Len(t, recent, RepeatWindow)
	assert.NotEqual(t, recent[0], recent[1])
	assert.NotEqual(t, recent[1], recent[2])
	assert.NotEqual(t, recent[0], recent[2])
}
