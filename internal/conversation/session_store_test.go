package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelane/clinic-concierge/pkg/logging"
)

func newTestStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *SessionStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewSessionStore(rdb, ttl, logging.Default(), nil)
}

func TestSessionStoreRoundTrip(t *testing.T) {
	_, store := newTestStore(t, 30*time.Minute)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	state := NewConversationState("sess-1", now)
	state.Phase = PhaseShowingSlots
	state.Draft.SelectedDate = "2025-08-07"
	state.AppendMessage("user", "tomorrow please", now)
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, PhaseShowingSlots, loaded.Phase)
	assert.Equal(t, "2025-08-07", loaded.Draft.SelectedDate)
	require.Len(t, loaded.RecentMessages, 1)
	assert.Equal(t, int64(1), loaded.Version, "save should bump the version counter")
}

func TestSessionStoreLoadMissing(t *testing.T) {
	_, store := newTestStore(t, 30*time.Minute)

	loaded, err := store.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionStoreExpiresInactiveSession(t *testing.T) {
	mr, store := newTestStore(t, 30*time.Minute)
	ctx := context.Background()
	now := time.Now().UTC()

	state := NewConversationState("sess-stale", now.Add(-2*time.Hour))
	state.LastActivity = now.Add(-time.Hour)
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, "sess-stale")
	require.NoError(t, err)
	assert.Nil(t, loaded, "session past the inactivity window should be discarded")
	assert.False(t, mr.Exists(sessionKeyPrefix+"sess-stale"), "stale key should be deleted on read")
}

func TestSessionStoreDiscardsStaleSchema(t *testing.T) {
	mr, store := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	mr.Set(sessionKeyPrefix+"sess-old", `{"schema_version":0,"session_id":"sess-old","phase":"greeting"}`)

	loaded, err := store.Load(ctx, "sess-old")
	require.NoError(t, err)
	assert.Nil(t, loaded)
	assert.False(t, mr.Exists(sessionKeyPrefix+"sess-old"))
}

func TestSessionStoreDiscardsUndecodableSession(t *testing.T) {
	mr, store := newTestStore(t, 30*time.Minute)

	mr.Set(sessionKeyPrefix+"sess-bad", "{not json")

	loaded, err := store.Load(context.Background(), "sess-bad")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionStoreDelete(t *testing.T) {
	_, store := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	state := NewConversationState("sess-del", time.Now().UTC())
	require.NoError(t, store.Save(ctx, state))
	require.NoError(t, store.Delete(ctx, "sess-del"))

	loaded, err := store.Load(ctx, "sess-del")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionStoreSweep(t *testing.T) {
	_, store := newTestStore(t, 30*time.Minute)
	ctx := context.Background()
	now := time.Now().UTC()

	fresh := NewConversationState("sess-fresh", now)
	require.NoError(t, store.Save(ctx, fresh))

	stale := NewConversationState("sess-stale", now.Add(-2*time.Hour))
	stale.LastActivity = now.Add(-time.Hour)
	require.NoError(t, store.Save(ctx, stale))

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	loaded, err := store.Load(ctx, "sess-fresh")
	require.NoError(t, err)
	assert.NotNil(t, loaded, "fresh session must survive the sweep")
}

func TestSessionStoreActiveSessions(t *testing.T) {
	_, store := newTestStore(t, 30*time.Minute)
	ctx := context.Background()
	now := time.Now().UTC()

	a := NewConversationState("sess-a", now)
	a.Phase = PhaseConfirming
	a.Draft.SelectedDate = "2025-08-07"
	a.AppendMessage("user", "yes", now)
	require.NoError(t, store.Save(ctx, a))

	b := NewConversationState("sess-b", now)
	require.NoError(t, store.Save(ctx, b))

	summaries, err := store.ActiveSessions(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byID := map[string]SessionSummary{}
	for _, s := range summaries {
		byID[s.SessionID] = s
	}
	assert.Equal(t, PhaseConfirming, byID["sess-a"].Phase)
	assert.True(t, byID["sess-a"].HasDraftDate)
	assert.Equal(t, 1, byID["sess-a"].Turns)
	assert.Equal(t, PhaseGreeting, byID["sess-b"].Phase)
	assert.False(t, byID["sess-b"].HasDraftDate)
}
