package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, scoper Scoper) {
	t.Helper()
	ctx := context.Background()
	browserA := uuid.NewString()
	browserB := uuid.NewString()

	a := scoper.Scope(browserA)
	b := scoper.Scope(browserB)

	_, ok, err := a.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Set(ctx, KeyToken, "T"))
	require.NoError(t, a.Set(ctx, KeyLanguage, "fr"))

	value, ok, err := a.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "T", value)

	_, ok, err = b.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok, "browsers must not share state")

	require.NoError(t, a.Set(ctx, KeyToken, "T2"))
	value, _, err = a.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "T2", value)

	require.NoError(t, a.Delete(ctx, KeyToken, KeyLanguage))
	_, ok, err = a.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = a.Get(ctx, KeyLanguage)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryStoreRequiresBrowser(t *testing.T) {
	s := NewMemory().Scope("")
	_, _, err := s.Get(context.Background(), KeyToken)
	assert.ErrorIs(t, err, ErrNoBrowser)
	assert.ErrorIs(t, s.Set(context.Background(), KeyToken, "x"), ErrNoBrowser)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemory().Scope("browser")

	type flow struct {
		Step  string `json:"step"`
		Email string `json:"email"`
	}
	require.NoError(t, SetJSON(ctx, s, KeyResetFlow, flow{Step: "verifyOTP", Email: "a@b.com"}))

	var out flow
	ok, err := GetJSON(ctx, s, KeyResetFlow, &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "verifyOTP", out.Step)
	assert.Equal(t, "a@b.com", out.Email)

	ok, err = GetJSON(ctx, s, KeyEmailVerify, &out)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyUser, "{not json"))
	_, err = GetJSON(ctx, s, KeyUser, &out)
	assert.Error(t, err)
}

func openTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	client := openTestRedis(t)
	exerciseStore(t, NewRedis(client, "pointbox-test:", time.Minute))
}

func TestRedisStoreAppliesTTL(t *testing.T) {
	client := openTestRedis(t)
	ctx := context.Background()
	browserID := uuid.NewString()
	s := NewRedis(client, "pointbox-test:", time.Minute).Scope(browserID)

	require.NoError(t, s.Set(ctx, KeyUser, "{}"))
	ttl, err := client.TTL(ctx, "pointbox-test:"+browserID+":"+KeyUser).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	require.NoError(t, s.Delete(ctx, KeyUser))
}

func TestRedisStoreReadExtendsTTL(t *testing.T) {
	client := openTestRedis(t)
	ctx := context.Background()
	browserID := uuid.NewString()
	s := NewRedis(client, "pointbox-test:", time.Hour).Scope(browserID)
	key := "pointbox-test:" + browserID + ":" + KeyToken

	require.NoError(t, s.Set(ctx, KeyToken, "T"))
	require.NoError(t, client.Expire(ctx, key, 10*time.Second).Err())

	value, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "T", value)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute, "reading must slide the expiry")
	require.NoError(t, s.Delete(ctx, KeyToken))
}
