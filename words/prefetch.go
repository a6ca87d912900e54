package words

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Prefetcher keeps a buffer of words filled from a slow source, so a room
// picking its next word never waits on a database round trip. Generate
// answers from the buffer and tops up from fallback when it runs dry.
type Prefetcher struct {
	source   Generator
	fallback Generator
	buf      chan string
	batch    int
	retry    time.Duration
}

func NewPrefetcher(source, fallback Generator, size int) *Prefetcher {
	size = max(size, 1)
	return &Prefetcher{
		source:   source,
		fallback: fallback,
		buf:      make(chan string, size),
		batch:    max(size/2, 1),
		retry:    5 * time.Second,
	}
}

// Run fills the buffer until ctx is done.
func (p *Prefetcher) Run(ctx context.Context) error {
	retry := time.NewTimer(p.retry)
	retry.Stop()
	defer retry.Stop()

	for {
		got := p.source.Generate(p.batch)
		if len(got) == 0 {
			log.Debug().Msg("word source empty, retrying later")
			retry.Reset(p.retry)
			select {
			case <-ctx.Done():
				return nil
			case <-retry.C:
			}
			continue
		}
		for _, w := range got {
			select {
			case p.buf <- w:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Generate never blocks.
func (p *Prefetcher) Generate(count int) []string {
	out := make([]string, 0, count)
	for len(out) < count {
		select {
		case w := <-p.buf:
			out = append(out, w)
		default:
			return append(out, p.fallback.Generate(count-len(out))...)
		}
	}
	return out
}

// Buffered reports how many words are ready.
func (p *Prefetcher) Buffered() int {
	return len(p.buf)
}
