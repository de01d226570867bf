package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveStorage(t *testing.T) {
	m := New()

	m.ObserveStorage("category.create", time.Millisecond, nil)
	m.ObserveStorage("category.create", time.Millisecond, errors.New("boom"))
	m.ObserveStorage("transaction.list", 2*time.Millisecond, nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.storageOps.WithLabelValues("category.create", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.storageOps.WithLabelValues("category.create", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.storageDuration))
}

func TestMetrics_Snapshot(t *testing.T) {
	m := New()

	m.ObserveStorage("summary.month", time.Millisecond, nil)
	m.ObserveStorage("summary.month", time.Millisecond, nil)
	m.ObserveStorage("transaction.create", time.Millisecond, errors.New("x"))
	m.CacheHit()
	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.EventPublished("ok")
	m.EventPublished("error")
	m.EventPublished("skipped")

	s, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, float64(2), s.StorageOK)
	assert.Equal(t, float64(1), s.StorageErrors)
	assert.Equal(t, float64(3), s.CacheHits)
	assert.Equal(t, float64(1), s.CacheMisses)
	assert.Equal(t, 0.75, s.HitRate())
	assert.Equal(t, float64(1), s.EventsOK)
	assert.Equal(t, float64(1), s.EventsFailed)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.CacheHit()

	sa, err := a.Snapshot()
	require.NoError(t, err)
	sb, err := b.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, float64(1), sa.CacheHits)
	assert.Zero(t, sb.CacheHits)
	assert.Zero(t, sb.HitRate())
}
