package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodedesk/pkg/db"
	"nodedesk/pkg/settings"
	"nodedesk/pkg/store"
)

type backendFactory func(t *testing.T, dir string) Backend

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"file": func(t *testing.T, dir string) Backend {
			b, err := NewFileBackend(dir)
			require.NoError(t, err)
			return b
		},
		"sqlite": func(t *testing.T, dir string) Backend {
			d, err := db.Init(filepath.Join(dir, "nodedesk.db"))
			require.NoError(t, err)
			st := store.NewSQLiteStore(d)
			return NewSQLiteBackend(st, st)
		},
		"leveldb": func(t *testing.T, dir string) Backend {
			b, err := NewLevelDBBackend(filepath.Join(dir, "settings.ldb"))
			require.NoError(t, err)
			return b
		},
	}
}

func sampleState() settings.State {
	return settings.State{
		URL:             "http://node.example:9090",
		InternalPort:    7171,
		UIVersion:       "1.3.0",
		UseExternalNode: true,
		RunInternalNode: false,
		InternalAPIKey:  "internalkey",
		ExternalAPIKey:  "externalkey",
		Lng:             "de",
		LogLevel:        settings.LogDebug,
		Initialized:     true,
	}
}

func TestAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			a := NewAdapter(factory(t, t.TempDir()), settings.Defaults("1.0.0"), nil)
			defer a.Close()

			want := sampleState()
			require.NoError(t, a.Save(ctx, settings.RecordName, want))

			got, ok := a.Load(ctx, settings.RecordName)
			require.True(t, ok)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAdapter_NeverWrittenIsAbsent(t *testing.T) {
	ctx := context.Background()
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			a := NewAdapter(factory(t, t.TempDir()), settings.Defaults("1.0.0"), nil)
			defer a.Close()

			require.NoError(t, a.Save(ctx, "other", sampleState()))

			_, ok := a.Load(ctx, settings.RecordName)
			assert.False(t, ok)
		})
	}
}

func TestAdapter_LastSaveWins(t *testing.T) {
	ctx := context.Background()
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			a := NewAdapter(factory(t, t.TempDir()), settings.Defaults("1.0.0"), nil)
			defer a.Close()

			first := sampleState()
			second := first
			second.Lng = "ja"
			require.NoError(t, a.Save(ctx, settings.RecordName, first))
			require.NoError(t, a.Save(ctx, settings.RecordName, second))

			got, ok := a.Load(ctx, settings.RecordName)
			require.True(t, ok)
			assert.Equal(t, "ja", got.Lng)
		})
	}
}

func TestAdapter_CorruptRecordIsAbsent(t *testing.T) {
	ctx := context.Background()
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			b := factory(t, t.TempDir())
			a := NewAdapter(b, settings.Defaults("1.0.0"), nil)
			defer a.Close()

			require.NoError(t, b.Put(ctx, settings.RecordName, []byte("{not json")))

			_, ok := a.Load(ctx, settings.RecordName)
			assert.False(t, ok)
		})
	}
}

func TestAdapter_MissingFieldsTakeDefaults(t *testing.T) {
	ctx := context.Background()
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	a := NewAdapter(b, settings.Defaults("1.0.0"), nil)

	raw := `{"url":"http://mine:1","useExternalNode":true,"retired":"field"}`
	require.NoError(t, b.Put(ctx, settings.RecordName, []byte(raw)))

	got, ok := a.Load(ctx, settings.RecordName)
	require.True(t, ok)
	assert.Equal(t, "http://mine:1", got.URL)
	assert.True(t, got.UseExternalNode)
	assert.True(t, got.RunInternalNode, "missing boolean takes its default")
	assert.Equal(t, settings.DefaultInternalPort, got.InternalPort)
	assert.Equal(t, settings.LogInfo, got.LogLevel)
	assert.False(t, got.Initialized)
}

func TestFileBackend_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Put(ctx, settings.RecordName, []byte(`{}`)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "settings.json", entries[0].Name())
}

func TestFileBackend_RejectsPathNames(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, b.Put(context.Background(), "../escape", []byte(`{}`)))
	_, err = b.Get(context.Background(), "a/b")
	assert.Error(t, err)
}

func TestLevelDBBackend_SecondOpenFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ldb")
	b, err := NewLevelDBBackend(path)
	require.NoError(t, err)
	defer b.Close()

	_, err = NewLevelDBBackend(path)
	assert.Error(t, err)
}
