package server

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavelet/internal/playback"
)

func TestClient_RoundTrip(t *testing.T) {
	srv, svc := newTestServer(t, testCatalog)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c := NewClient(ts.Listener.Addr().String())
	ctx := context.Background()

	s, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.State{}, s)

	tracks, err := c.Catalog(ctx)
	require.NoError(t, err)
	assert.Len(t, tracks, 2)

	s, err = c.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, playback.PhaseRunning, s.Phase)
	assert.Equal(t, "Nightcall", svc.CurrentTrack().Title)

	s, err = c.Command(ctx, "toggle")
	require.NoError(t, err)
	assert.Equal(t, playback.PhasePaused, s.Phase)

	_, err = c.Load(ctx, 77)
	assert.ErrorContains(t, err, "404")

	_, err = c.Command(ctx, "rewind")
	assert.Error(t, err)
}

func TestClient_Watch(t *testing.T) {
	srv, svc := newTestServer(t, testCatalog)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []Message
	done := make(chan error, 1)
	go func() {
		done <- NewClient(ts.URL).Watch(ctx, func(m Message) {
			mu.Lock()
			got = append(got, m)
			mu.Unlock()
		})
	}()

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(got)
	}
	require.Eventually(t, func() bool { return count() == 3 }, 5*time.Second, 10*time.Millisecond)

	svc.LoadTrack(testCatalog[2])
	require.Eventually(t, func() bool { return count() == 5 }, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, MsgTrack, got[3].Type)
	assert.Equal(t, "Roygbiv", got[3].Track.Title)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestClient_ServerShutdownEndsWatch(t *testing.T) {
	srv, _ := newTestServer(t, testCatalog)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	done := make(chan error, 1)
	started := make(chan struct{}, 1)
	go func() {
		done <- NewClient(ts.URL).Watch(context.Background(), func(Message) {
			select {
			case started <- struct{}{}:
			default:
			}
		})
	}()
	<-started
	require.NoError(t, srv.Shutdown(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after shutdown")
	}
}
