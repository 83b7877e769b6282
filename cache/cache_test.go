package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeychilson/chatimport/transcript"
)

func sampleTranscript() *transcript.Transcript {
	return transcript.New("chatgpt", "Go questions", []transcript.Message{
		{Role: transcript.RoleUser, Content: "what is a goroutine", Order: 0},
		{Role: transcript.RoleAssistant, Content: "a lightweight thread", Order: 1},
	}, "https://chatgpt.com/share/abc")
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemory(Config{TTL: time.Minute})
	defer mc.Close()

	ctx := context.Background()
	url := "https://chatgpt.com/share/abc"

	got, err := mc.Get(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, got, "miss should return nil, nil")

	want := sampleTranscript()
	require.NoError(t, mc.Set(ctx, url, want))

	got, err = mc.Get(ctx, url)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Title, got.Title)
	assert.Len(t, got.Messages, 2)

	require.NoError(t, mc.Delete(ctx, url))
	got, err = mc.Get(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemory(Config{TTL: 10 * time.Millisecond})
	defer mc.Close()

	ctx := context.Background()
	url := "https://claude.ai/share/xyz"
	require.NoError(t, mc.Set(ctx, url, sampleTranscript()))

	time.Sleep(20 * time.Millisecond)

	got, err := mc.Get(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, got, "expired entry should read as a miss")
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rc := NewRedis(client, Config{TTL: time.Minute})
	ctx := context.Background()
	url := "https://gemini.google.com/share/abc"

	got, err := rc.Get(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := sampleTranscript()
	require.NoError(t, rc.Set(ctx, url, want))

	got, err = rc.Get(ctx, url)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Provider, got.Provider)
	assert.Equal(t, want.Messages, got.Messages)

	require.NoError(t, rc.Delete(ctx, url))
	got, err = rc.Get(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCacheExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rc := NewRedis(client, Config{TTL: time.Minute})
	ctx := context.Background()
	url := "https://perplexity.ai/search/abc"
	require.NoError(t, rc.Set(ctx, url, sampleTranscript()))

	mr.FastForward(2 * time.Minute)

	got, err := rc.Get(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, got, "redis TTL should expire the entry")
}

func TestEntryIsExpired(t *testing.T) {
	entry := &Entry{StoredAt: time.Now(), TTL: time.Hour}
	assert.False(t, entry.IsExpired())

	entry.StoredAt = time.Now().Add(-2 * time.Hour)
	assert.True(t, entry.IsExpired())
}
