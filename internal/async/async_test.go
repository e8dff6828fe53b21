package async

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPureIsResolved(t *testing.T) {
	v := Pure(42)
	require.True(t, v.Resolved())
	require.Equal(t, 42, v.Get())
}

func TestMapRunsAfterSource(t *testing.T) {
	release := make(chan struct{})
	var g Group

	src := Go(&g, func() int {
		<-release
		return 20
	})
	mapped := Map(src, func(n int) int { return n + 1 })
	require.False(t, mapped.Resolved())

	close(release)
	require.Equal(t, 21, mapped.Get())
	g.Wait()
}

func TestMapOnResolvedRunsInline(t *testing.T) {
	v := Map(Pure("a"), func(s string) string { return s + "b" })
	require.True(t, v.Resolved())
	require.Equal(t, "ab", v.Get())
}

func TestFlatMapChainsAsyncSteps(t *testing.T) {
	var g Group
	v := FlatMap(Go(&g, func() int { return 2 }), func(n int) *Value[int] {
		return Go(&g, func() int { return n * 10 })
	})
	require.Equal(t, 20, v.Get())
	g.Wait()
}

func TestAllKeepsInputOrder(t *testing.T) {
	var g Group
	slow := Go(&g, func() string {
		time.Sleep(20 * time.Millisecond)
		return "slow"
	})
	fast := Go(&g, func() string { return "fast" })

	got := All([]*Value[string]{slow, fast, Pure("pure")}).Get()
	require.Equal(t, []string{"slow", "fast", "pure"}, got)
	g.Wait()
}

func TestAllOfResolvedValues(t *testing.T) {
	v := All([]*Value[int]{Pure(1), Pure(2)})
	require.True(t, v.Resolved())
	require.Equal(t, []int{1, 2}, v.Get())
}

func TestAwaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	v := Go(nil, func() int {
		<-block
		return 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := v.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGroupWaitFlushesBackgroundTasks(t *testing.T) {
	var g Group
	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		g.Go(func() {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		})
	}
	g.Wait()
	require.EqualValues(t, 5, ran.Load())
}

func TestPanicResolvesValueAndResurfacesOnGet(t *testing.T) {
	var g Group
	v := Go(&g, func() int { panic("boom") })

	select {
	case <-v.Done():
	case <-time.After(time.Second):
		t.Fatal("value never resolved after its task panicked")
	}
	g.Wait()

	require.PanicsWithValue(t, "boom", func() { v.Get() })
	require.PanicsWithValue(t, "boom", func() { _, _ = v.Await(context.Background()) })
}

func TestPanicPropagatesThroughChains(t *testing.T) {
	var g Group
	release := make(chan struct{})
	src := Go(&g, func() int {
		<-release
		return 1
	})
	mapped := Map(src, func(int) string { panic("mapped") })
	all := All([]*Value[string]{Pure("ok"), mapped})

	close(release)
	require.PanicsWithValue(t, "mapped", func() { all.Get() })
	require.PanicsWithValue(t, "mapped", func() { Map(mapped, func(s string) string { return s }) })
	g.Wait()
}
