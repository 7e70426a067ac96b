package cronrunner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunner_RunsJobWithBaseContext(t *testing.T) {
	type key struct{}
	base := context.WithValue(context.Background(), key{}, "scan")
	r := New(zap.NewNop(), base)

	got := make(chan any, 1)
	_, err := r.Add("probe", "@every 1s", func(ctx context.Context) {
		select {
		case got <- ctx.Value(key{}):
		default:
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Entries())

	r.Start()
	defer r.Stop()
	select {
	case v := <-got:
		assert.Equal(t, "scan", v)
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestRunner_SkipsOverlappingTicks(t *testing.T) {
	r := New(nil, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	_, err := r.Add("slow", "@every 1s", func(context.Context) {
		calls.Add(1)
		<-release
	})
	require.NoError(t, err)
	r.Start()
	time.Sleep(2500 * time.Millisecond)
	close(release)
	r.Stop()
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunner_RejectsBadSpec(t *testing.T) {
	r := New(nil, context.Background())
	_, err := r.Add("bad", "every now and then", func(context.Context) {})
	assert.Error(t, err)
}
