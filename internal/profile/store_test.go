package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAutoProfileName(t *testing.T) {
	doc := &Document{Profiles: []Profile{
		NewProfile("Profile 1"),
		NewProfile("Profile 3"),
		NewProfile("Farming"),
	}}
	assert.Equal(t, "Profile 2", doc.AutoProfileName())

	i := doc.AddProfile("")
	assert.Equal(t, "Profile 2", doc.Profiles[i].Name)
	assert.Equal(t, "Profile 4", doc.AutoProfileName())
}

func TestDeleteProfileKeepsOne(t *testing.T) {
	doc := NewDocument()
	doc.AddProfile("Second")
	doc.LastActiveProfile = 1

	require.NoError(t, doc.DeleteProfile(1))
	assert.Equal(t, 0, doc.LastActiveProfile)
	assert.ErrorIs(t, doc.DeleteProfile(0), ErrLastProfile)
}

func TestFindProfile(t *testing.T) {
	doc := NewDocument()
	doc.AddProfile("Mining")

	i, err := doc.Find("mining")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	i, err = doc.Find("1")
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	_, err = doc.Find("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveProfileClamped(t *testing.T) {
	doc := NewDocument()
	doc.LastActiveProfile = 7
	assert.Equal(t, 0, doc.ActiveProfile())
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)

	store := NewStore(path, zap.NewNop())
	require.NoError(t, store.LoadDefault())
	require.NoError(t, store.Update(func(doc *Document) error {
		i := doc.AddProfile("Fishing")
		doc.Profiles[i].Sets[0].Keys = "e"
		doc.Profiles[i].Sets[0].AddPosition(300, 400)
		doc.LastActiveProfile = i
		return nil
	}))
	require.NoError(t, store.Save())

	reloaded := NewStore(path, zap.NewNop())
	require.NoError(t, reloaded.LoadDefault())
	doc := reloaded.Document()

	require.Len(t, doc.Profiles, 2)
	assert.Equal(t, 1, doc.ActiveProfile())
	assert.Equal(t, path, doc.LastFilePath)
	assert.Equal(t, store.Document().Profiles, doc.Profiles)
}

func TestStoreLoadDefaultMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	store := NewStore(path, nil)
	require.NoError(t, store.LoadDefault())

	doc := store.Document()
	require.Len(t, doc.Profiles, 1)
	assert.Equal(t, "Profile 1", doc.Profiles[0].Name)
	assert.Equal(t, path, store.Path())
}

func TestStoreLoadDefaultBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewStore(path, nil)
	assert.Error(t, store.LoadDefault())
	assert.Len(t, store.Document().Profiles, 1)
}

func TestStoreLoadFromRejectsEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"profiles": []}`), 0o644))

	store := NewStore(filepath.Join(dir, DefaultFileName), nil)
	require.NoError(t, store.LoadDefault())
	assert.ErrorIs(t, store.LoadFrom(empty), ErrNoProfiles)
	assert.Equal(t, filepath.Join(dir, DefaultFileName), store.Path())
}

func TestStoreSaveAsRemembersPath(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, DefaultFileName), nil)
	require.NoError(t, store.LoadDefault())

	other := filepath.Join(dir, "nested", "other.json")
	require.NoError(t, store.SaveAs(other))
	assert.Equal(t, other, store.Path())
	assert.FileExists(t, other)

	imported := NewStore(filepath.Join(dir, "unused.json"), nil)
	require.NoError(t, imported.LoadFrom(other))
	assert.Equal(t, other, imported.Path())
}

func TestStoreWatchReloadsExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	store := NewStore(path, zap.NewNop())
	require.NoError(t, store.LoadDefault())
	require.NoError(t, store.Save())

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan *Document, 1)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(doc *Document) {
			select {
			case changed <- doc:
			default:
			}
		})
	}()
	// let the watcher register before editing
	time.Sleep(100 * time.Millisecond)

	edited := NewDocument()
	edited.Profiles[0].Name = "Edited"
	require.NoError(t, WriteFile(path, edited))

	select {
	case doc := <-changed:
		assert.Equal(t, "Edited", doc.Profiles[0].Name)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the edit")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestStoreSavesBackToLoadedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	elsewhere := filepath.Join(dir, "elsewhere.json")

	doc := NewDocument()
	doc.LastFilePath = elsewhere
	require.NoError(t, WriteFile(path, doc))

	store := NewStore(path, nil)
	require.NoError(t, store.LoadDefault())
	assert.Equal(t, path, store.Path())

	require.NoError(t, store.Update(func(doc *Document) error {
		doc.Profiles[0].Sets[0].Keys = "a"
		return nil
	}))
	require.NoError(t, store.Save())

	assert.NoFileExists(t, elsewhere)
	saved, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a", saved.Profiles[0].Sets[0].Keys)
	assert.Equal(t, path, saved.LastFilePath)
}

func TestProfileKeysSurviveReordering(t *testing.T) {
	doc := NewDocument()
	doc.AddProfile("Second")
	doc.AddProfile("Second")
	doc.AddProfile("Third")

	keys := doc.Keys()
	assert.Equal(t, []Key{{"Profile 1", 0}, {"Second", 0}, {"Second", 1}, {"Third", 0}}, keys)

	store := NewStore(filepath.Join(t.TempDir(), DefaultFileName), nil)
	store.Replace(doc)
	require.NoError(t, store.Update(func(doc *Document) error {
		doc.Profiles[2].Sets[0].Keys = "q"
		return doc.DeleteProfile(0)
	}))

	p, ok := store.ProfileByKey(keys[2])
	require.True(t, ok)
	assert.Equal(t, "q", p.Sets[0].Keys)

	i, ok := store.Document().Locate(keys[3])
	require.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = store.ProfileByKey(keys[0])
	assert.False(t, ok)
}
