package intake

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/notigate/pkg/domain"
	"github.com/umputun/notigate/pkg/intake/mocks"
)

const feedHead = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>status</title>`

const feedTail = `</channel></rss>`

func TestFeedPoller_PrimesThenEmitsNewEntries(t *testing.T) {
	var mu sync.Mutex
	body := feedHead + `
<item><title>old entry</title><guid>g1</guid><description>seen before start</description></item>
` + feedTail

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	processor := &mocks.ProcessorMock{
		ProcessFunc: func(ctx context.Context, msg domain.Message) error { return nil },
	}

	p := NewFeedPoller(FeedConfig{
		Feeds:    []FeedSource{{Name: "status", URL: ts.URL}},
		Priority: 6,
	}, processor)

	// first poll only seeds the seen set
	p.Poll(context.Background())
	assert.Empty(t, processor.ProcessCalls(), "priming poll emits nothing")

	// same content again, still nothing new
	p.Poll(context.Background())
	assert.Empty(t, processor.ProcessCalls())

	mu.Lock()
	body = feedHead + `
<item><title>old entry</title><guid>g1</guid><description>seen before start</description></item>
<item><title>deploy finished</title><guid>g2</guid><description>rev abc123 live</description></item>
` + feedTail
	mu.Unlock()

	p.Poll(context.Background())
	calls := processor.ProcessCalls()
	require.Len(t, calls, 1)
	got := calls[0].Msg
	assert.Equal(t, "deploy finished", got.Title)
	assert.Equal(t, "rev abc123 live", got.Body)
	assert.Equal(t, 6, got.Priority)
	assert.Equal(t, "status", got.App)
	assert.Equal(t, domain.SourceFeed, got.Source)

	// same entry is not emitted twice
	p.Poll(context.Background())
	assert.Len(t, processor.ProcessCalls(), 1)
}

func TestFeedPoller_GUIDFallsBackToLink(t *testing.T) {
	var mu sync.Mutex
	body := feedHead + feedTail

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	processor := &mocks.ProcessorMock{
		ProcessFunc: func(ctx context.Context, msg domain.Message) error { return nil },
	}
	p := NewFeedPoller(FeedConfig{Feeds: []FeedSource{{Name: "status", URL: ts.URL}}}, processor)
	p.Poll(context.Background())

	mu.Lock()
	body = feedHead + `
<item><title>no guid here</title><link>https://example.com/a</link><description>x</description></item>
` + feedTail
	mu.Unlock()

	p.Poll(context.Background())
	p.Poll(context.Background())
	assert.Len(t, processor.ProcessCalls(), 1, "link-keyed entry deduped across polls")
}

func TestFeedPoller_BadFeedDoesNotStopOthers(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedHead + feedTail))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	processor := &mocks.ProcessorMock{
		ProcessFunc: func(ctx context.Context, msg domain.Message) error { return nil },
	}
	p := NewFeedPoller(FeedConfig{Feeds: []FeedSource{
		{Name: "bad", URL: bad.URL},
		{Name: "good", URL: good.URL},
	}}, processor)

	p.Poll(context.Background()) // must not panic or abort on the bad feed

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.True(t, p.primed["good"], "good feed polled after bad one failed")
	assert.False(t, p.primed["bad"])
}

func TestFeedPoller_HTMLDescriptionSanitized(t *testing.T) {
	var mu sync.Mutex
	body := feedHead + feedTail

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	processor := &mocks.ProcessorMock{
		ProcessFunc: func(ctx context.Context, msg domain.Message) error { return nil },
	}
	p := NewFeedPoller(FeedConfig{Feeds: []FeedSource{{Name: "status", URL: ts.URL}}}, processor)
	p.Poll(context.Background())

	mu.Lock()
	body = feedHead + `
<item><title>report</title><guid>g9</guid>
<description>&lt;p&gt;all&lt;/p&gt;&lt;p&gt;good&lt;/p&gt;</description></item>
` + feedTail
	mu.Unlock()

	p.Poll(context.Background())
	calls := processor.ProcessCalls()
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].Msg.Body, "<p>")
	assert.Contains(t, calls[0].Msg.Body, "all")
	assert.Contains(t, calls[0].Msg.Body, "good")
}

func TestFeedPoller_RunLoop(t *testing.T) {
	var polls int
	var mu sync.Mutex
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		polls++
		mu.Unlock()
		_, _ = w.Write([]byte(feedHead + feedTail))
	}))
	defer ts.Close()

	processor := &mocks.ProcessorMock{
		ProcessFunc: func(ctx context.Context, msg domain.Message) error { return nil },
	}
	p := NewFeedPoller(FeedConfig{
		Feeds:    []FeedSource{{Name: "status", URL: ts.URL}},
		Interval: 20 * time.Millisecond,
	}, processor)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, polls, 2, "immediate poll plus at least one tick")
}
