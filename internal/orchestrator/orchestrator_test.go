package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hotboard/internal/hotlist"
)

type stubAdapter struct {
	source hotlist.Source
	items  []hotlist.RawItem
	err    error
	panics bool
	delay  time.Duration
}

func (s *stubAdapter) Source() hotlist.Source { return s.source }

func (s *stubAdapter) Crawl(ctx context.Context) ([]hotlist.RawItem, error) {
	if s.panics {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.items, s.err
}

func src(name string) hotlist.Source {
	return hotlist.Source{Name: name, Category: "hot", DisplayName: name}
}

func itemsFor(name string) []hotlist.RawItem {
	return []hotlist.RawItem{{Title: name + " item", URL: "https://" + name + ".example/1", Rank: 1}}
}

func TestRunAllIsolatesFailingAdapter(t *testing.T) {
	t.Parallel()

	adapters := map[string]hotlist.Adapter{
		"a_hot": &stubAdapter{source: src("a"), items: itemsFor("a")},
		"b_hot": &stubAdapter{source: src("b"), items: itemsFor("b")},
		"c_hot": &stubAdapter{source: src("c"), items: itemsFor("c")},
		"d_hot": &stubAdapter{source: src("d"), items: itemsFor("d")},
		"e_hot": &stubAdapter{source: src("e"), panics: true},
	}
	o := New(adapters, time.Second, zap.NewNop())

	result := o.RunAll(context.Background())
	require.Len(t, result, 5)

	for _, key := range []string{"a_hot", "b_hot", "c_hot", "d_hot"} {
		require.NoError(t, result[key].Err, key)
		require.Len(t, result[key].Items, 1, key)
	}
	require.Error(t, result["e_hot"].Err)
	require.Contains(t, result["e_hot"].Err.Error(), "panicked")
	require.Empty(t, result["e_hot"].Items)
}

func TestRunAllRecordsAdapterErrors(t *testing.T) {
	t.Parallel()

	adapters := map[string]hotlist.Adapter{
		"ok_hot":  &stubAdapter{source: src("ok"), items: itemsFor("ok")},
		"bad_hot": &stubAdapter{source: src("bad"), err: errors.New("upstream down")},
	}
	o := New(adapters, time.Second, zap.NewNop())

	result := o.RunAll(context.Background())
	require.NoError(t, result["ok_hot"].Err)
	require.ErrorContains(t, result["bad_hot"].Err, "upstream down")
	require.Equal(t, "bad", result["bad_hot"].Source.Name)
}

func TestRunAllTimesOutHungAdapterWithoutStallingOthers(t *testing.T) {
	t.Parallel()

	adapters := map[string]hotlist.Adapter{
		"fast_hot": &stubAdapter{source: src("fast"), items: itemsFor("fast")},
		"hung_hot": &stubAdapter{source: src("hung"), delay: 5 * time.Second},
	}
	o := New(adapters, 50*time.Millisecond, zap.NewNop())

	start := time.Now()
	result := o.RunAll(context.Background())
	require.Less(t, time.Since(start), 2*time.Second)

	require.NoError(t, result["fast_hot"].Err)
	require.Error(t, result["hung_hot"].Err)
}

func TestRunOne(t *testing.T) {
	t.Parallel()

	adapters := map[string]hotlist.Adapter{
		"a_hot": &stubAdapter{source: src("a"), items: itemsFor("a")},
	}
	o := New(adapters, time.Second, zap.NewNop())

	items, err := o.RunOne(context.Background(), "a_hot")
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = o.RunOne(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUnknownAdapter)
}

func TestResultFor(t *testing.T) {
	t.Parallel()

	adapters := map[string]hotlist.Adapter{
		"a_hot": &stubAdapter{source: src("a")},
	}
	o := New(adapters, time.Second, zap.NewNop())

	res, ok := o.ResultFor("a_hot", itemsFor("a"), nil)
	require.True(t, ok)
	require.Len(t, res, 1)
	require.Equal(t, "a", res["a_hot"].Source.Name)

	_, ok = o.ResultFor("missing", nil, nil)
	require.False(t, ok)
}
