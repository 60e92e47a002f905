package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Delete("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodDelete, "/things/{id}", "404"))
	for _, id := range []string{"1", "2"} {
		req := httptest.NewRequest(http.MethodDelete, "/things/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodDelete, "/things/{id}", "404"))
	assert.Equal(t, before+2, after)
}

func TestRecordCreated(t *testing.T) {
	before := testutil.ToFloat64(recordsCreated.WithLabelValues("messages"))
	RecordCreated("messages")
	assert.Equal(t, before+1, testutil.ToFloat64(recordsCreated.WithLabelValues("messages")))
}
