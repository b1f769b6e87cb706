package variant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitroom/internal/events"
)

func newTracker(t *testing.T, opts ...Option) (*Tracker, Store) {
	t.Helper()
	st := NewMemoryStore()
	tr, err := NewTracker(context.Background(), st, opts...)
	require.NoError(t, err)
	return tr, st
}

func TestSeedsAndOrdering(t *testing.T) {
	tr, st := newTracker(t)
	names := func(vs []Variant) []string {
		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = v.Name
		}
		return out
	}
	assert.Equal(t, []string{"cloud_free", "local", "local_paid", "cloud_paid"}, names(tr.ListAvailable()))

	rows, err := st.ListVariants(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	for _, v := range rows {
		assert.Equal(t, DefaultMaxSeconds, v.MaxSeconds)
		assert.True(t, v.Enabled)
	}
}

func TestSeedsDoNotOverwriteExisting(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.UpsertVariant(ctx, Variant{Name: "local", DisplayName: "Mine", AvgSeconds: 99, MaxSeconds: 120, Enabled: false}))
	tr, err := NewTracker(ctx, st)
	require.NoError(t, err)
	v, err := tr.Get("local")
	require.NoError(t, err)
	assert.Equal(t, "Mine", v.DisplayName)
	assert.Equal(t, 99.0, v.AvgSeconds)
	assert.False(t, v.Enabled)
	assert.Len(t, tr.All(), 4)
}

func TestRecordOutcomeSmoothing(t *testing.T) {
	tr, st := newTracker(t)
	ctx := context.Background()

	v, err := tr.RecordOutcome(ctx, "local", 200)
	require.NoError(t, err)
	assert.InDelta(t, 76.0, v.AvgSeconds, 1e-9)
	v, err = tr.RecordOutcome(ctx, "local", 200)
	require.NoError(t, err)
	assert.InDelta(t, 100.8, v.AvgSeconds, 1e-9)
	assert.False(t, v.Blacklisted)

	// persisted before returning
	rows, _ := st.ListVariants(ctx)
	for _, r := range rows {
		if r.Name == "local" {
			assert.InDelta(t, 100.8, r.AvgSeconds, 1e-9)
		}
	}
}

func TestBlacklistIsMonotonic(t *testing.T) {
	pub := events.NewMemoryPublisher()
	tr, _ := newTracker(t, WithPublisher(pub))
	ctx := context.Background()

	var v Variant
	var err error
	for i := 0; i < 9; i++ {
		v, err = tr.RecordOutcome(ctx, "local", 200)
		require.NoError(t, err)
		require.False(t, v.Blacklisted, "sample %d", i+1)
	}
	v, err = tr.RecordOutcome(ctx, "local", 200)
	require.NoError(t, err)
	assert.True(t, v.Blacklisted)
	assert.InDelta(t, 183.357, v.AvgSeconds, 1e-3)
	assert.Equal(t, "average generation time 183.4s exceeded limit of 180s", v.BlacklistReason)
	assert.Len(t, pub.Named("blacklisted"), 1)

	for i := 0; i < 20; i++ {
		v, err = tr.RecordOutcome(ctx, "local", 1)
		require.NoError(t, err)
	}
	assert.Less(t, v.AvgSeconds, 180.0)
	assert.True(t, v.Blacklisted, "fast samples never clear the blacklist")
	assert.Equal(t, "average generation time 183.4s exceeded limit of 180s", v.BlacklistReason)
	assert.Len(t, pub.Named("blacklisted"), 1)

	for _, a := range tr.ListAvailable() {
		assert.NotEqual(t, "local", a.Name)
	}
	_, err = tr.Select("local")
	assert.ErrorIs(t, err, ErrVariantUnavailable)
}

func TestReinstateAndSetEnabled(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, _ = tr.RecordOutcome(ctx, "cloud_paid", 1000)
	}
	v, _ := tr.Get("cloud_paid")
	require.True(t, v.Blacklisted)

	v, err := tr.Reinstate(ctx, "cloud_paid")
	require.NoError(t, err)
	assert.False(t, v.Blacklisted)
	assert.Empty(t, v.BlacklistReason)

	_, err = tr.SetEnabled(ctx, "cloud_paid", false)
	require.NoError(t, err)
	_, err = tr.Select("cloud_paid")
	assert.ErrorIs(t, err, ErrVariantUnavailable)
	_, err = tr.SetEnabled(ctx, "cloud_paid", true)
	require.NoError(t, err)
	_, err = tr.Select("cloud_paid")
	assert.NoError(t, err)
}

func TestSelect(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	v, err := tr.Select("")
	require.NoError(t, err)
	assert.Equal(t, "cloud_free", v.Name)

	_, err = tr.Select("nope")
	assert.ErrorIs(t, err, ErrVariantNotFound)

	for _, s := range Seeds() {
		_, err := tr.SetEnabled(ctx, s.Name, false)
		require.NoError(t, err)
	}
	_, err = tr.Select("")
	assert.ErrorIs(t, err, ErrNoVariantAvailable)
}

func TestUnknownVariantOperations(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()
	_, err := tr.RecordOutcome(ctx, "ghost", 1)
	assert.ErrorIs(t, err, ErrVariantNotFound)
	_, err = tr.Reinstate(ctx, "ghost")
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

type failingStore struct {
	Store
	fail bool
}

func (f *failingStore) UpsertVariant(ctx context.Context, v Variant) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Store.UpsertVariant(ctx, v)
}

func TestStoreFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Store: NewMemoryStore()}
	tr, err := NewTracker(ctx, fs)
	require.NoError(t, err)

	fs.fail = true
	_, err = tr.RecordOutcome(ctx, "local", 500)
	require.Error(t, err)
	v, _ := tr.Get("local")
	assert.Equal(t, 45.0, v.AvgSeconds)
}

func TestConcurrentOutcomesAreSerializedPerVariant(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = tr.RecordOutcome(ctx, "local_paid", 130) }()
		go func() { defer wg.Done(); _, _ = tr.RecordOutcome(ctx, "cloud_free", 60) }()
	}
	wg.Wait()

	// every sample is the same, so any interleaving yields n applications
	want := 30.0
	for i := 0; i < n; i++ {
		want = 0.8*want + 0.2*130
	}
	got, _ := tr.Get("local_paid")
	assert.InDelta(t, want, got.AvgSeconds, 1e-9)
}
