package registry

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRegistry_RegisterResolveRoundTrip(t *testing.T) {
	r, err := LoadProjectRegistry(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	require.NoError(t, r.RegisterProject("/home/user/MyProject"))

	path, ok := r.ResolveProject("myproject")
	require.True(t, ok)
	assert.Equal(t, "/home/user/MyProject", path)

	_, ok = r.ResolveProject("unknown")
	assert.False(t, ok)
}

func TestProjectRegistry_BasenameCollisionOverwrites(t *testing.T) {
	r, err := LoadProjectRegistry(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	require.NoError(t, r.RegisterProject("/a/service"))
	require.NoError(t, r.RegisterProject("/b/service"))

	path, ok := r.ResolveProject("service")
	require.True(t, ok)
	assert.Equal(t, "/b/service", path)
}

func TestProjectRegistry_PersistsAcrossLoads(t *testing.T) {
	file := filepath.Join(t.TempDir(), "registry.json")

	r, err := LoadProjectRegistry(file)
	require.NoError(t, err)
	require.NoError(t, r.RegisterProject("/home/user/proj"))

	reloaded, err := LoadProjectRegistry(file)
	require.NoError(t, err)
	path, ok := reloaded.ResolveProject("proj")
	require.True(t, ok)
	assert.Equal(t, "/home/user/proj", path)
}

func TestProjectRegistry_FindProjectByPathLongestPrefix(t *testing.T) {
	r, err := LoadProjectRegistry(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	require.NoError(t, r.RegisterProject("/home/user/mono"))
	require.NoError(t, r.RegisterProject("/home/user/mono/packages/api"))

	got, ok := r.FindProjectByPath("/home/user/mono/packages/api/src")
	require.True(t, ok)
	assert.Equal(t, "/home/user/mono/packages/api", got)

	got, ok = r.FindProjectByPath("/home/user/mono/docs")
	require.True(t, ok)
	assert.Equal(t, "/home/user/mono", got)

	_, ok = r.FindProjectByPath("/elsewhere")
	assert.False(t, ok)
}

func TestProjectRegistry_RemoveDropsAllNamesForPath(t *testing.T) {
	r, err := LoadProjectRegistry(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	require.NoError(t, r.RegisterProject("/home/user/proj"))
	require.NoError(t, r.Remove("/home/user/proj"))

	_, ok := r.ResolveProject("proj")
	assert.False(t, ok)
}

func TestStateMap_Transitions(t *testing.T) {
	m := NewStateMap()
	const tree = "/home/user/proj"

	_, ok := m.Get(tree)
	assert.False(t, ok)

	m.SetIndexing(tree)
	s, ok := m.Get(tree)
	require.True(t, ok)
	assert.Equal(t, StatusIndexing, s.Status)

	m.UpdateProgress(tree, 42, "embedding")
	s, _ = m.Get(tree)
	assert.Equal(t, 42, s.Progress)
	assert.Equal(t, "embedding", s.ProgressMessage)

	m.SetIndexed(tree, 10, 120)
	s, _ = m.Get(tree)
	assert.Equal(t, StatusIndexed, s.Status)
	assert.Equal(t, 10, s.TotalFiles)
	assert.False(t, s.LastIndexed.IsZero())

	m.SetError(tree, "boom")
	s, _ = m.Get(tree)
	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, "boom", s.Error)

	m.Remove(tree)
	_, ok = m.Get(tree)
	assert.False(t, ok)
}

func TestStateMap_HydrateDoesNotClobberExistingState(t *testing.T) {
	m := NewStateMap()
	const tree = "/home/user/proj"

	m.SetIndexed(tree, 3, 30)
	m.HydrateIndexed(tree)

	s, _ := m.Get(tree)
	assert.False(t, s.UnknownLastIndexed)
	assert.Equal(t, 3, s.TotalFiles)

	m.HydrateIndexed("/home/user/other")
	s, _ = m.Get("/home/user/other")
	assert.True(t, s.UnknownLastIndexed)
}

func TestTreeMutex_SerializesFIFOPerPath(t *testing.T) {
	m := NewTreeMutex()
	const tree = "/home/user/proj"

	var mu sync.Mutex
	var order []int

	unlock := m.Lock(tree)

	var wg sync.WaitGroup
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			u := m.Lock(tree)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			u()
		}()
		// Stagger the goroutines so their queue positions are fixed.
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	assert.Empty(t, order, "queued work must not run while the lock is held")
	mu.Unlock()

	unlock()
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestTreeMutex_IndependentPathsDoNotBlock(t *testing.T) {
	m := NewTreeMutex()

	unlockA := m.Lock("/tree/a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		u := m.Lock("/tree/b")
		u()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on an unrelated tree blocked")
	}
}
