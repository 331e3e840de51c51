package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector(2, 100*time.Millisecond, time.Minute)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.SpeedMultiplier))
	assert.Equal(t, 0.1, testutil.ToFloat64(c.TickInterval))
	assert.Equal(t, 60.0, testutil.ToFloat64(c.RefreshInterval))

	c.NATSPublishedInc()
	c.NATSPublishedInc()
	c.NATSPublishErrInc()
	c.NATSSetConnected(true)
	c.BuildErrorInc("file")
	assert.Equal(t, 2.0, testutil.ToFloat64(c.NATSPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSPublishErrs))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BuildErrors.WithLabelValues("file")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "replay_nats_published_total 2")
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.NATSPublishedInc()
		c.NATSPublishErrInc()
		c.PublishObserve(time.Millisecond)
		c.NATSSetConnected(false)
		c.BuildErrorInc("db")
	})
}
