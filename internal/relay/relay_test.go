package relay_test

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/hdsim/internal/errors"
	"codeberg.org/mutker/hdsim/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainPreservesOrder(t *testing.T) {
	r := relay.New()

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Send(relay.Entry{Tag: relay.TagInfo, Text: strconv.Itoa(i)}))
	}
	assert.Equal(t, 5, r.Len())

	got := r.Drain()
	require.Len(t, got, 5)
	for i, e := range got {
		assert.Equal(t, strconv.Itoa(i), e.Text)
		assert.Equal(t, uint64(i+1), e.Seq)
		assert.False(t, e.Time.IsZero())
	}

	assert.Nil(t, r.Drain())
	assert.Zero(t, r.Len())
}

func TestSendKeepsExplicitTime(t *testing.T) {
	r := relay.New()
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Send(relay.Entry{Text: "x", Time: at}))
	assert.Equal(t, at, r.Drain()[0].Time)
}

func TestConcurrentProducers(t *testing.T) {
	r := relay.New()
	const producers, perProducer = 8, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = r.Send(relay.Entry{ID: strconv.Itoa(p), Text: strconv.Itoa(i)})
			}
		}(p)
	}
	wg.Wait()

	got := r.Drain()
	require.Len(t, got, producers*perProducer)

	// per-producer order survives interleaving
	last := map[string]int{}
	for i, e := range got {
		assert.Equal(t, uint64(i+1), e.Seq)
		n, _ := strconv.Atoi(e.Text)
		if prev, ok := last[e.ID]; ok {
			assert.Greater(t, n, prev)
		}
		last[e.ID] = n
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	r := relay.New()
	require.NoError(t, r.Send(relay.Entry{Text: "before"}))

	r.Close()
	r.Close()
	assert.True(t, r.Closed())

	err := r.Send(relay.Entry{Text: "after"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, relay.ErrClosed))

	got := r.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, "before", got[0].Text)
}

func TestNotify(t *testing.T) {
	r := relay.New()

	select {
	case <-r.Notify():
		t.Fatal("notified before any send")
	default:
	}

	require.NoError(t, r.Send(relay.Entry{Text: "a"}))
	require.NoError(t, r.Send(relay.Entry{Text: "b"}))

	select {
	case <-r.Notify():
	case <-time.After(time.Second):
		t.Fatal("no notification after send")
	}
	assert.Len(t, r.Drain(), 2)
}

func TestIsOutcome(t *testing.T) {
	assert.False(t, relay.Entry{Tag: relay.TagInfo}.IsOutcome())
	assert.True(t, relay.Entry{Tag: relay.TagSuccess}.IsOutcome())
	assert.True(t, relay.Entry{Tag: relay.TagError}.IsOutcome())
}
