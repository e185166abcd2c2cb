package system

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flmelody/defender-console-go/pkg/client"
	"github.com/flmelody/defender-console-go/pkg/config"
	"github.com/flmelody/defender-console-go/pkg/logger"
	"github.com/flmelody/defender-console-go/pkg/session"
	"github.com/flmelody/defender-console-go/pkg/types"
)

func newClient(t *testing.T, baseURL string) *client.Client {
	t.Helper()
	log := logger.NewTestLogger()
	return client.New(client.Options{
		App:     types.AppAdmin,
		Config:  &config.AppConfig{BaseURL: baseURL, RootPath: "/wall", AdminPath: "/admin", GuardPath: "/guard"},
		Session: session.NewStore(session.NewMemoryStorage(), log),
		Logger:  log,
	})
}

func TestMode(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("FetchedOnceAndCached", func(t *testing.T) {
		var calls int32
		engine := gin.New()
		engine.GET("/system/settings", func(c *gin.Context) {
			atomic.AddInt32(&calls, 1)
			c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"mode": "reverse_proxy"}})
		})
		srv := httptest.NewServer(engine)
		t.Cleanup(srv.Close)

		store := NewStore(newClient(t, srv.URL), logger.NewTestLogger())
		ctx := context.Background()

		assert.Equal(t, types.ModeReverseProxy, store.Mode(ctx))
		assert.Equal(t, types.ModeReverseProxy, store.Mode(ctx))
		assert.True(t, store.IsReverseProxy(ctx))
		assert.True(t, store.Fetched())
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("FallsBackSilentlyOnError", func(t *testing.T) {
		store := NewStore(newClient(t, "http://127.0.0.1:1"), logger.NewTestLogger())
		ctx := context.Background()

		assert.Equal(t, types.ModeAuthRequest, store.Mode(ctx))
		assert.False(t, store.IsReverseProxy(ctx))
		assert.False(t, store.Fetched())
	})

	t.Run("EmptyModeKeepsDefault", func(t *testing.T) {
		engine := gin.New()
		engine.GET("/system/settings", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{}})
		})
		srv := httptest.NewServer(engine)
		t.Cleanup(srv.Close)

		store := NewStore(newClient(t, srv.URL), logger.NewTestLogger())
		assert.Equal(t, types.ModeAuthRequest, store.Mode(context.Background()))
	})
}

func TestModeFailureThenRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var healthy atomic.Bool
	engine := gin.New()
	engine.GET("/system/settings", func(c *gin.Context) {
		if !healthy.Load() {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"mode": "reverse_proxy"}})
	})
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	store := NewStore(newClient(t, srv.URL), logger.NewTestLogger())
	ctx := context.Background()

	// The failed fetch is not cached; a later call may still succeed.
	require.Equal(t, types.ModeAuthRequest, store.Mode(ctx))
	healthy.Store(true)
	assert.Equal(t, types.ModeReverseProxy, store.Mode(ctx))
}
