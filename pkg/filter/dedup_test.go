package filter

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedup_WindowBehavior(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := NewDedup(300*time.Second, 0)
	d.nowFn = func() time.Time { return now }

	// t=0: first post delivered
	assert.False(t, d.IsRecentlyPosted("Backup", "OK"))
	d.MarkPosted("Backup", "OK")

	// t=100: repeat suppressed
	now = now.Add(100 * time.Second)
	assert.True(t, d.IsRecentlyPosted("Backup", "OK"))

	// t=400: window elapsed, delivered again
	now = now.Add(300 * time.Second)
	assert.False(t, d.IsRecentlyPosted("Backup", "OK"))
}

func TestDedup_KeyIncludesTitleAndMessage(t *testing.T) {
	d := NewDedup(time.Minute, 0)
	d.MarkPosted("Backup", "OK")

	assert.True(t, d.IsRecentlyPosted("Backup", "OK"))
	assert.False(t, d.IsRecentlyPosted("Backup", "FAILED"))
	assert.False(t, d.IsRecentlyPosted("Restore", "OK"))
}

func TestDedup_CapacityEviction(t *testing.T) {
	d := NewDedup(time.Hour, 3)

	for i := 0; i < 5; i++ {
		d.MarkPosted(fmt.Sprintf("msg-%d", i), "body")
	}

	assert.Equal(t, 3, d.Len(), "buffer never exceeds capacity")
	assert.False(t, d.IsRecentlyPosted("msg-0", "body"), "oldest evicted first")
	assert.False(t, d.IsRecentlyPosted("msg-1", "body"))
	assert.True(t, d.IsRecentlyPosted("msg-2", "body"))
	assert.True(t, d.IsRecentlyPosted("msg-4", "body"))
}

func TestDedup_MarkRefreshesExisting(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := NewDedup(300*time.Second, 0)
	d.nowFn = func() time.Time { return now }

	d.MarkPosted("Backup", "OK")
	now = now.Add(200 * time.Second)
	d.MarkPosted("Backup", "OK") // refresh, not a second entry

	assert.Equal(t, 1, d.Len())
	now = now.Add(200 * time.Second) // 400s after first post, 200s after refresh
	assert.True(t, d.IsRecentlyPosted("Backup", "OK"))
}

func TestDedup_Concurrent(t *testing.T) {
	d := NewDedup(time.Minute, 50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.MarkPosted(fmt.Sprintf("title-%d", j%60), "body")
				d.IsRecentlyPosted(fmt.Sprintf("title-%d", j%60), "body")
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, d.Len(), 50)
}
