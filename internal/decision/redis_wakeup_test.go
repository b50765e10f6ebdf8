package decision

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdreview/api/internal/notify"
	"mdreview/api/internal/store"
)

func TestWait_RedisPublishWakesWaiter(t *testing.T) {
	s := miniredis.RunT(t)
	n, err := notify.NewRedisNotifier("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })

	f := &fakeFetcher{review: pendingReview()}
	w := NewWaiter(f, WithPollInterval(30*time.Second), WithSubscriber(n))

	time.AfterFunc(200*time.Millisecond, func() {
		f.decide(store.StatusChangesRequested, "split step 3")
		_ = n.Publish(context.Background(), "review-1")
	})

	started := time.Now()
	out, err := w.Wait(context.Background(), "review-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, out.Decided)
	assert.Equal(t, store.StatusChangesRequested, out.Review.Status)
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Equal(t, int32(2), f.reads.Load())
}
