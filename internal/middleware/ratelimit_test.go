package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/calendars/:calendarId/slots/search", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func post(r *gin.Engine, calendarID string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/calendars/"+calendarID+"/slots/search", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterBucketsPerCalendar(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	require.NotNil(t, rl)
	frozen := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return frozen }
	r := limitedRouter(rl)

	assert.Equal(t, http.StatusOK, post(r, "cal-1").Code)
	assert.Equal(t, http.StatusOK, post(r, "cal-1").Code)

	limited := post(r, "cal-1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.Contains(t, limited.Body.String(), "RATE_LIMITED")

	assert.Equal(t, http.StatusOK, post(r, "cal-2").Code, "other calendars keep their own bucket")

	frozen = frozen.Add(time.Second)
	assert.Equal(t, http.StatusOK, post(r, "cal-1").Code, "tokens refill over time")
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 5)
	assert.Nil(t, rl)
	r := limitedRouter(rl)
	for i := 0; i < 20; i++ {
		require.Equal(t, http.StatusOK, post(r, "cal-1").Code)
	}
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(10, 1)
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.limiterFor("stale")

	now = now.Add(limiterIdleTTL)
	for i := 0; i < limiterSweepEveryN; i++ {
		rl.limiterFor("fresh")
	}
	_, stale := rl.buckets["stale"]
	assert.False(t, stale)
	assert.Len(t, rl.buckets, 1)
}
