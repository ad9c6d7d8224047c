package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveMessage(OutcomeMatched)
		m.ObserveLookup("bing", "hit", time.Second)
		m.CacheHit()
		m.CacheMiss()
		m.Learned()
		m.SetActiveSessions(3)
	})
}

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.ObserveMessage(OutcomeMatched)
	m.ObserveMessage(OutcomeMatched)
	m.ObserveMessage(OutcomeTeachMe)
	m.ObserveLookup("wikipedia", "hit", 120*time.Millisecond)
	m.CacheHit()
	m.Learned()
	m.SetActiveSessions(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues(OutcomeMatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("wikipedia", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ActiveSessions))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `tanyabot_messages_total{outcome="matched"} 2`)
	assert.Contains(t, string(body), "tanyabot_learned_answers_total 1")
}

func TestSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
