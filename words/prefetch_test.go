package words

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingGenerator hands out its words once, then nothing.
type countingGenerator struct {
	mu    sync.Mutex
	words []string
	calls int
}

func (g *countingGenerator) Generate(count int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	n := min(count, len(g.words))
	out := append([]string{}, g.words[:n]...)
	g.words = g.words[n:]
	return out
}

func (g *countingGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestPrefetcher_EmptyBufferUsesFallback(t *testing.T) {
	t.Parallel()
	p := NewPrefetcher(&countingGenerator{}, stubGenerator{[]string{"z", "y"}}, 4)
	assert.Equal(t, []string{"z", "y"}, p.Generate(2))
	assert.Zero(t, p.Buffered())
}

func TestPrefetcher_ServesBufferedWords(t *testing.T) {
	t.Parallel()
	source := &countingGenerator{words: []string{"a", "b", "c", "d"}}
	p := NewPrefetcher(source, stubGenerator{[]string{"z"}}, 4)
	p.retry = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return p.Buffered() == 4 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, p.Generate(3))
	assert.Equal(t, []string{"d", "z"}, p.Generate(2), "short buffer is topped up from the fallback")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPrefetcher_RetriesDrySource(t *testing.T) {
	t.Parallel()
	source := &countingGenerator{}
	p := NewPrefetcher(source, stubGenerator{}, 2)
	p.retry = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool { return source.callCount() >= 3 }, 2*time.Second, time.Millisecond)

	source.mu.Lock()
	source.words = []string{"late"}
	source.mu.Unlock()
	require.Eventually(t, func() bool { return p.Buffered() == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, []string{"late"}, p.Generate(1))
}
