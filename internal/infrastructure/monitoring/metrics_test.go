package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRun(t *testing.T) {
	m := NewMetrics()
	m.RecordRun("react", "reported", 20*time.Millisecond)
	m.RecordRun("react", "timed_out", 2*time.Second)
	m.RecordRun("vue", "reported", 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("react", "reported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("react", "timed_out")))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.RunsByStatus["reported"])
	assert.Equal(t, int64(1), snap.RunsByStatus["timed_out"])
}

func TestIndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.RecordDroppedMessage("stale")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.MessagesDropped.WithLabelValues("stale")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.MessagesDropped.WithLabelValues("stale")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()
	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/sessions/:id", func(c *gin.Context) { c.String(http.StatusNotFound, "nope") })

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/sessions/:id", "404")))
	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.TotalErrors)
}
