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

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.ObserveImport("piece_create", ResultCommitted, 3, 20*time.Millisecond)
	r.ObserveImport("piece_create", ResultRejected, 2, 5*time.Millisecond)
	r.ObserveImport("piece_create", ResultCommitted, 1, 5*time.Millisecond)
	r.ObserveTemplate("piece_create")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.imports.WithLabelValues("piece_create", ResultCommitted)))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.rows.WithLabelValues("piece_create", ResultCommitted)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rows.WithLabelValues("piece_create", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.templates.WithLabelValues("piece_create")))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "killay_bulk_imports_total")
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveImport("piece_create", ResultAborted, 1, time.Second)
		r.ObserveTemplate("piece_create")
	})
}
