package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcotta/presenca-bot/internal/model"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s := NewFileStore(filepath.Join(t.TempDir(), "eventos.json"))
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestLoadMissingFileYieldsEmptyStore(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, s.Load(context.Background()))

	_, err := s.Get(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventos.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewFileStore(path)
	err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrMalformedState)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "eventos.json")

	s := NewFileStore(path)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Create(ctx, "Raid1"))
	require.NoError(t, s.Record(ctx, "Raid1", "ana", model.IntentConfirm, model.ClassShura))
	require.NoError(t, s.Record(ctx, "Raid1", "bia", model.IntentDecline, model.ClassRK))
	require.NoError(t, s.Create(ctx, "WoE"))

	// A fresh store reading the same file must see identical contents.
	reloaded := NewFileStore(path)
	require.NoError(t, reloaded.Load(ctx))

	raid, err := reloaded.Get(ctx, "Raid1")
	require.NoError(t, err)
	assert.Equal(t, map[string]model.ClassLabel{"ana": model.ClassShura}, raid.Confirmed)
	assert.Equal(t, map[string]model.ClassLabel{"bia": model.ClassRK}, raid.Declined)

	woe, err := reloaded.Get(ctx, "WoE")
	require.NoError(t, err)
	assert.Empty(t, woe.Confirmed)
	assert.Empty(t, woe.Declined)
}

// The persisted wire format is fixed: top-level object keyed by event name,
// each value with "presentes" and "nao_vou" maps.
func TestPersistedWireFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "eventos.json")

	s := NewFileStore(path)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Record(ctx, "Raid1", "ana", model.IntentConfirm, model.ClassShura))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"presentes"`)
	assert.Contains(t, string(data), `"nao_vou"`)
	assert.Contains(t, string(data), `"Raid1"`)
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Create(ctx, "Raid1"))
	require.NoError(t, s.Record(ctx, "Raid1", "ana", model.IntentConfirm, model.ClassShura))

	err := s.Create(ctx, "Raid1")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// The failed create must not have touched the existing record.
	e, getErr := s.Get(ctx, "Raid1")
	require.NoError(t, getErr)
	assert.Len(t, e.Confirmed, 1)
}

func TestCreateThenCreateLeavesMapsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Create(ctx, "WoE"))
	assert.ErrorIs(t, s.Create(ctx, "WoE"), ErrAlreadyExists)

	e, err := s.Get(ctx, "WoE")
	require.NoError(t, err)
	assert.Empty(t, e.Confirmed)
	assert.Empty(t, e.Declined)
}

func TestDeleteMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Create(ctx, "Raid1"))

	assert.ErrorIs(t, s.Delete(ctx, "Raid2"), ErrNotFound)

	// Store unchanged.
	_, err := s.Get(ctx, "Raid1")
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Create(ctx, "Raid1"))
	require.NoError(t, s.Delete(ctx, "Raid1"))

	_, err := s.Get(ctx, "Raid1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordImplicitlyCreatesEvent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// First responder to an announcement the store never saw.
	require.NoError(t, s.Record(ctx, "Surprise", "ana", model.IntentConfirm, model.ClassGX))

	e, err := s.Get(ctx, "Surprise")
	require.NoError(t, err)
	assert.Equal(t, model.ClassGX, e.Confirmed["ana"])
}

func TestGetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Record(ctx, "Raid1", "ana", model.IntentConfirm, model.ClassShura))

	e, err := s.Get(ctx, "Raid1")
	require.NoError(t, err)
	e.Confirmed["intruder"] = model.ClassBio

	fresh, err := s.Get(ctx, "Raid1")
	require.NoError(t, err)
	assert.NotContains(t, fresh.Confirmed, "intruder")
}

func TestConcurrentRecordsKeepInvariant(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		intent := model.IntentConfirm
		if i%2 == 1 {
			intent = model.IntentDecline
		}
		go func(intent model.Intent) {
			defer wg.Done()
			assert.NoError(t, s.Record(ctx, "Raid1", "ana", intent, model.ClassShura))
		}(intent)
	}
	wg.Wait()

	e, err := s.Get(ctx, "Raid1")
	require.NoError(t, err)
	_, confirmed := e.Confirmed["ana"]
	_, declined := e.Declined["ana"]
	assert.True(t, confirmed != declined, "user must end in exactly one set")
}
