package storage

import (
	"alcyxob/fitness-dashboard/internal/config"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeySettings)
	require.NoError(t, err)
	assert.False(t, ok)

	var seen []string
	unsubscribe := s.Subscribe(KeySettings, func(v string, present bool) {
		if present {
			seen = append(seen, v)
		} else {
			seen = append(seen, "<deleted>")
		}
	})

	require.NoError(t, s.Set(ctx, KeySettings, `{"displayName":"A"}`))
	require.NoError(t, s.Set(ctx, KeySettings, `{"displayName":"B"}`))

	v, ok, err := s.Get(ctx, KeySettings)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"displayName":"B"}`, v)

	require.NoError(t, s.Delete(ctx, KeySettings))
	_, ok, err = s.Get(ctx, KeySettings)
	require.NoError(t, err)
	assert.False(t, ok)

	unsubscribe()
	unsubscribe()
	require.NoError(t, s.Set(ctx, KeySettings, "ignored"))

	assert.Equal(t, []string{`{"displayName":"A"}`, `{"displayName":"B"}`, "<deleted>"}, seen)

	require.NoError(t, s.Delete(ctx, "missing-key"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestBadgerStoreInMemory(t *testing.T) {
	s, err := NewBadgerStore("")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyTheme, "dark"))
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(dir)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(ctx, KeyTheme)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, "profile1:")
	defer s.Close()

	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), KeyWeekPlan, "{}"))
	assert.True(t, mr.Exists("profile1:"+KeyWeekPlan))
}

func TestConnectRedisFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := ConnectRedis(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

// fakeBucket serves path-style GET, PUT and DELETE object requests for one
// bucket.
type fakeBucket struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]string
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, ok := strings.CutPrefix(r.URL.Path, "/"+b.bucket+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		v, ok := b.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		_, _ = io.WriteString(w, v)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		b.objects[key] = string(body)
		w.Header().Set("ETag", `"etag"`)
	case http.MethodDelete:
		delete(b.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (b *fakeBucket) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	return keys
}

func TestS3Store(t *testing.T) {
	bucket := &fakeBucket{bucket: "dashboard", objects: map[string]string{}}
	srv := httptest.NewServer(bucket)
	defer srv.Close()

	s, err := NewS3Store(context.Background(), config.S3Config{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		BucketName:      "dashboard",
	}, "profile1/")
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), KeyTheme, "dark"))
	keys := bucket.keys()
	slices.Sort(keys)
	assert.Equal(t, []string{"profile1/" + KeySettings + ".json", "profile1/" + KeyTheme + ".json"}, keys)
}
