package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestLiveEndpoint(t *testing.T) {
	t.Run("all passing", func(t *testing.T) {
		s := New()
		s.AddLivenessCheck("a", time.Second, passing())
		s.AddLivenessCheck("b", time.Second, passing())

		w := httptest.NewRecorder()
		s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", decodeStatus(t, w).Status)
	})

	t.Run("failing past threshold", func(t *testing.T) {
		s := New()
		s.AddLivenessCheck("db", time.Second, failing("connection refused"))

		ctx := context.Background()
		for range 3 {
			s.probes[0].run(ctx)
		}

		w := httptest.NewRecorder()
		s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeStatus(t, w)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "connection refused", body.Checks["db"])
	})

	t.Run("failing below threshold stays healthy", func(t *testing.T) {
		s := New()
		s.AddLivenessCheck("flaky", time.Second, failing("temporary"))

		ctx := context.Background()
		s.probes[0].run(ctx)
		s.probes[0].run(ctx)

		w := httptest.NewRecorder()
		s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("no checks", func(t *testing.T) {
		s := New()

		w := httptest.NewRecorder()
		s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("ready and passing", func(t *testing.T) {
		s := New()
		s.AddReadinessCheck("postgres", time.Second, passing())
		s.SetReady(true)

		w := httptest.NewRecorder()
		s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("gate closed", func(t *testing.T) {
		s := New()
		s.AddReadinessCheck("postgres", time.Second, passing())

		w := httptest.NewRecorder()
		s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, decodeStatus(t, w).Checks, "_readiness")
	})

	t.Run("gate reclosed on shutdown", func(t *testing.T) {
		s := New()
		s.SetReady(true)

		w := httptest.NewRecorder()
		s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusOK, w.Code)

		s.SetReady(false)

		w2 := httptest.NewRecorder()
		s.ReadyEndpoint(w2, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w2.Code)
	})

	t.Run("one of two failing", func(t *testing.T) {
		s := New()
		s.AddReadinessCheck("postgres", time.Second, passing())
		s.AddReadinessCheck("cache", time.Second, failing("cache down"))
		s.SetReady(true)

		ctx := context.Background()
		for range 3 {
			s.probes[1].run(ctx)
		}

		w := httptest.NewRecorder()
		s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeStatus(t, w)
		assert.Contains(t, body.Checks, "cache")
		assert.NotContains(t, body.Checks, "postgres")
	})
}

func TestIsReady(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, passing())

	assert.False(t, s.IsReady())

	s.SetReady(true)
	assert.True(t, s.IsReady())

	s.SetReady(false)
	assert.False(t, s.IsReady())
}

func TestProbeRecovery(t *testing.T) {
	down := true
	s := New()
	s.AddLivenessCheck("flaky", time.Second, func(_ context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	})
	p := s.probes[0]
	ctx := context.Background()

	for range 3 {
		p.run(ctx)
	}
	assert.False(t, p.ok.Load())

	down = false
	p.run(ctx)
	assert.True(t, p.ok.Load(), "one success should recover the probe")
}

func TestStopIdempotent(t *testing.T) {
	s := New()
	s.AddLivenessCheck("noop", time.Second, passing())

	s.Start(context.Background(), 50*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	s.AddLivenessCheck("a", time.Second, failing("err"))
	s.AddReadinessCheck("b", time.Second, passing())
	s.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				s.IsReady()
				s.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				s.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	s.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}
