package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kodexai/regwatch/internal/regulator"
)

func TestSink_PublishRecords(t *testing.T) {
	t.Parallel()

	s := New()
	require.NoError(t, s.Publish(context.Background(), regulator.Publication{Title: "First"}))
	require.NoError(t, s.Publish(context.Background(), regulator.Publication{Title: "Second"}))

	pubs := s.Publications()
	require.Len(t, pubs, 2)
	require.Equal(t, "First", pubs[0].Title)

	// The returned slice is a copy.
	pubs[0].Title = "mutated"
	require.Equal(t, "First", s.Publications()[0].Title)
}

func TestSink_ConcurrentPublish(t *testing.T) {
	t.Parallel()

	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Publish(context.Background(), regulator.Publication{Title: "p"})
		}()
	}
	wg.Wait()
	require.Len(t, s.Publications(), 20)
}
