package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"hotboard/internal/hotlist"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestNewStoreWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewStoreWithPool(nil)
	require.Error(t, err)
}

func TestGetOrCreateSourceReturnsID(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO sources").
		WithArgs("weibo", "hot", "微博").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := store.GetOrCreateSource(context.Background(), hotlist.Source{
		Name: "weibo", Category: "hot", DisplayName: "微博",
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateSourceRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t)

	_, err := store.GetOrCreateSource(context.Background(), hotlist.Source{Name: "weibo"})
	require.Error(t, err)
}

func TestMergePartitionCommitsFullFlow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT url FROM hot_items").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"url"}).AddRow("https://old.example/1"))
	mock.ExpectExec("UPDATE hot_items").
		WithArgs(2, int64(99), 4, now, int64(7), "https://old.example/1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO hot_items").
		WithArgs(int64(7), "key-1", "fresh", "https://new.example/1", 1, int64(10), 0,
			"", "", "", []string{}, (*time.Time)(nil), now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM hot_items").
		WithArgs(int64(7), 30).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	err := store.MergePartition(context.Background(), 7, func(tx hotlist.PartitionTx) error {
		urls, err := tx.ListURLs(context.Background())
		require.NoError(t, err)
		require.Contains(t, urls, "https://old.example/1")

		if err := tx.UpdateItem(context.Background(), "https://old.example/1", 2, 99, 4, now); err != nil {
			return err
		}
		if err := tx.InsertItem(context.Background(), hotlist.StoredItem{
			SourceKey: "key-1", Title: "fresh", URL: "https://new.example/1",
			Rank: 1, Score: 10, CrawledAt: now, CreatedAt: now,
		}); err != nil {
			return err
		}
		evicted, err := tx.Trim(context.Background(), hotlist.MaxItemsPerPartition)
		require.NoError(t, err)
		require.Equal(t, int64(2), evicted)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMergePartitionRollsBackOnError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("constraint violated")
	err := store.MergePartition(context.Background(), 3, func(hotlist.PartitionTx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItemFailsWhenRowMissing(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE hot_items").
		WithArgs(1, int64(5), 0, now, int64(3), "https://gone.example").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := store.MergePartition(context.Background(), 3, func(tx hotlist.PartitionTx) error {
		return tx.UpdateItem(context.Background(), "https://gone.example", 1, 5, 0, now)
	})
	require.ErrorContains(t, err, "no row")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListItemsReturnsRowsAndFreshestCrawl(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	older := time.Unix(1700000000, 0).UTC()
	newer := older.Add(time.Hour)

	cols := []string{
		"id", "source_id", "source_key", "title", "url", "rank", "score",
		"comment_count", "description", "author", "image_url", "tags",
		"published_at", "crawled_at", "created_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM hot_items").
		WithArgs("weibo", "hot").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(1), int64(7), "k1", "first", "https://a.example", 1, int64(100), 3,
				"", "", "", []string{"tech"}, (*time.Time)(nil), newer, older).
			AddRow(int64(2), int64(7), "k2", "second", "https://b.example", 2, int64(50), 0,
				"", "", "", []string{}, (*time.Time)(nil), older, older))

	items, freshest, err := store.ListItems(context.Background(), "weibo", "hot")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "first", items[0].Title)
	require.Equal(t, []string{"tech"}, items[0].Tags)
	require.Equal(t, newer, freshest)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEvictStaleCountsRemovedRows(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	cutoff := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("DELETE FROM hot_items").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	removed, err := store.EvictStale(context.Background(), cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(12), removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sources").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
