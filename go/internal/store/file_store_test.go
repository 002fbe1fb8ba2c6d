package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

var widgets = Collection{Sport: "cricket", Entity: "widgets"}

func newFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	return s, dir
}

func TestFileStoreMissingCollectionIsEmpty(t *testing.T) {
	s, _ := newFileStore(t)

	docs, err := s.List(context.Background(), widgets)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = s.Get(context.Background(), widgets, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStorePutGetReplace(t *testing.T) {
	ctx := context.Background()
	s, dir := newFileStore(t)

	require.NoError(t, PutAs(ctx, s, widgets, "w1", widget{ID: "w1", Name: "bat", Price: 2}))
	require.NoError(t, PutAs(ctx, s, widgets, "w2", widget{ID: "w2", Name: "ball", Price: 1}))
	require.NoError(t, PutAs(ctx, s, widgets, "w1", widget{ID: "w1", Name: "bat", Price: 3}))

	got, err := GetAs[widget](ctx, s, widgets, "w1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Price)

	all, err := ListAs[widget](ctx, s, widgets)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = os.Stat(filepath.Join(dir, "cricket", "widgets.json"))
	assert.NoError(t, err)
}

func TestFileStorePutRejectsMismatchedID(t *testing.T) {
	s, _ := newFileStore(t)

	err := s.Put(context.Background(), widgets, "w1", json.RawMessage(`{"id":"w2"}`))
	assert.Error(t, err)
}

func TestFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newFileStore(t)
	require.NoError(t, PutAs(ctx, s, widgets, "w1", widget{ID: "w1"}))

	require.NoError(t, s.Delete(ctx, widgets, "w1"))
	assert.ErrorIs(t, s.Delete(ctx, widgets, "w1"), ErrNotFound)

	docs, err := s.List(ctx, widgets)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFileStoreRejectsPathTraversal(t *testing.T) {
	s, _ := newFileStore(t)

	_, err := s.List(context.Background(), Collection{Sport: "..", Entity: "teams"})
	assert.Error(t, err)
	_, err = s.List(context.Background(), Collection{Sport: "cricket", Entity: "a/b"})
	assert.Error(t, err)
}

func TestFileStoreConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	s, _ := newFileStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			assert.NoError(t, PutAs(ctx, s, widgets, id, widget{ID: id}))
		}(i)
	}
	wg.Wait()

	docs, err := s.List(ctx, widgets)
	require.NoError(t, err)
	assert.Len(t, docs, 20)
}
