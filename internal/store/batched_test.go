package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchedStore_ArtifactReadsBufferFirst(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	putTestArtifact(t, s, "committed", KindASG, "python", "db")

	batch := NewBatchedStore(s)
	putTestArtifact(t, batch, "buffered", KindASG, "python", "mem")

	a, err := batch.Artifact("buffered", KindASG, "python")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "mem", string(a.Payload))

	a, err = batch.Artifact("committed", KindASG, "python")
	require.NoError(t, err)
	require.NotNil(t, a, "falls through to the database")
	assert.Equal(t, "db", string(a.Payload))

	a, err = s.Artifact("buffered", KindASG, "python")
	require.NoError(t, err)
	assert.Nil(t, a, "nothing reaches SQLite before CommitBatch")
}

func TestCommitBatch(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	batch := NewBatchedStore(s)

	var wg sync.WaitGroup
	for i, path := range []string{"/a.py", "/b.py", "/c.py"} {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			hash := ContentHash([]byte(path))
			_ = batch.PutArtifact(&Artifact{Hash: hash, Kind: KindASG, Language: "python", Payload: []byte("{}")})
			batch.AddFile(&File{Path: path, Language: "python", Hash: hash, LineCount: i, LastIndexed: time.Now()})
		}(i, path)
	}
	wg.Wait()
	assert.Equal(t, 6, batch.Len())

	require.NoError(t, s.CommitBatch(batch))
	assert.Equal(t, 0, batch.Len())

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, f := range files {
		a, err := s.Artifact(f.Hash, KindASG, "python")
		require.NoError(t, err)
		assert.NotNil(t, a, f.Path)
	}
}
