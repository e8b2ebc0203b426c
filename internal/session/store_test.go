package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/pkg/logging"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, logging.New("error")), mr
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	businessID := uuid.New()

	st := New(false)
	st.CurrentIntent = intent.CollectTime
	userID := uuid.New()
	st.UserID = &userID
	st.Scheduling().ServiceName = "Corte"
	st.Scheduling().Date = "10/09/2026"
	st.Scheduling().Slots = []Slot{{Time: "09:00", Available: true}, {Time: "11:00", Available: false}}
	st.AddHistory(RoleUser, "quero agendar", 10)
	st.AddHistory(RoleBot, "qual serviço?", 10)

	require.NoError(t, store.Save(ctx, businessID, "5511999990000", st, time.Hour))

	loaded, err := store.Load(ctx, businessID, "5511999990000")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, intent.CollectTime, loaded.CurrentIntent)
	assert.Equal(t, st.UserID, loaded.UserID)
	require.NotNil(t, loaded.Context.Scheduling)
	assert.Equal(t, "Corte", loaded.Context.Scheduling.ServiceName)
	assert.Equal(t, st.Context.Scheduling.Slots, loaded.Context.Scheduling.Slots)
	assert.Len(t, loaded.History, 2)
	assert.Equal(t, "quero agendar", loaded.History[0].Content)
	assert.False(t, loaded.LastUpdated.IsZero())
}

func TestLoadMissingReturnsNil(t *testing.T) {
	store, _ := newTestStore(t)

	st, err := store.Load(context.Background(), uuid.New(), "5511988887777")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestLoadMalformedPayloadIsDiscarded(t *testing.T) {
	store, mr := newTestStore(t)
	businessID := uuid.New()
	key := sessionKey(businessID, "5511900001111")
	require.NoError(t, mr.Set(key, "{not json"))

	st, err := store.Load(context.Background(), businessID, "5511900001111")
	require.NoError(t, err)
	assert.Nil(t, st)
	// Repair removes the corrupt payload.
	assert.False(t, mr.Exists(key))
}

func TestLoadUnknownIntentIsDiscarded(t *testing.T) {
	store, mr := newTestStore(t)
	businessID := uuid.New()
	key := sessionKey(businessID, "5511900002222")
	require.NoError(t, mr.Set(key, `{"current_intent":"stale_step","context_data":{},"conversation_history":[]}`))

	st, err := store.Load(context.Background(), businessID, "5511900002222")
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.False(t, mr.Exists(key))
}

func TestTTLExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	businessID := uuid.New()

	require.NoError(t, store.Save(ctx, businessID, "5511933334444", New(false), time.Minute))

	mr.FastForward(2 * time.Minute)

	st, err := store.Load(ctx, businessID, "5511933334444")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestDelete(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	businessID := uuid.New()

	require.NoError(t, store.Save(ctx, businessID, "5511955556666", New(true), time.Hour))
	require.NoError(t, store.Delete(ctx, businessID, "5511955556666"))
	assert.False(t, mr.Exists(sessionKey(businessID, "5511955556666")))
}
