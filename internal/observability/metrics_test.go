package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLookup(t *testing.T) {
	m := getMetrics()
	beforeMatch := testutil.ToFloat64(m.lookupTotal.WithLabelValues("match"))
	beforeFallback := testutil.ToFloat64(m.lookupTotal.WithLabelValues("fallback"))

	RecordLookup(time.Millisecond, true, 0.1)
	RecordLookup(time.Millisecond, false, 1)

	assert.Equal(t, beforeMatch+1, testutil.ToFloat64(m.lookupTotal.WithLabelValues("match")))
	assert.Equal(t, beforeFallback+1, testutil.ToFloat64(m.lookupTotal.WithLabelValues("fallback")))
}

func TestRecordStoreOp(t *testing.T) {
	m := getMetrics()
	before := testutil.ToFloat64(m.storeErrors.WithLabelValues("memory", "set"))

	RecordStoreOp("memory", "set", time.Millisecond, nil)
	RecordStoreOp("memory", "set", time.Millisecond, errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(m.storeErrors.WithLabelValues("memory", "set")))
}

func TestPendingGauge(t *testing.T) {
	m := getMetrics()
	before := testutil.ToFloat64(m.pendingReplies)

	AddPendingReplies(1)
	assert.Equal(t, before+1, testutil.ToFloat64(m.pendingReplies))
	AddPendingReplies(-1)
	assert.Equal(t, before, testutil.ToFloat64(m.pendingReplies))
}

func TestMetricsHandler(t *testing.T) {
	RecordMessage("user")

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pasokh_messages_total")
}
