package middleware_http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"product-store/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func Test_TraceMiddleware_ContinuesTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	parent := "0af7651916cd43dd8448eb211c80319c"

	r := chi.NewRouter()
	r.Use(TraceMiddleware())
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/products/42", nil)
	req.Header.Set("traceparent", "00-"+parent+"-b7ad6b7169203331-01")
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, parent, rec.Header().Get("X-Trace-ID"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func Test_ResponseWriter_CapsCapturedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	body := strings.Repeat("x", logger.MaxBodyLogged+10)
	n, err := rw.Write([]byte(body))

	assert.NoError(t, err)
	assert.Equal(t, len(body), n)
	assert.Equal(t, http.StatusOK, rw.Status())
	assert.Equal(t, logger.MaxBodyLogged, rw.buf.Len())
	assert.Equal(t, int64(len(body)), rw.size)
	assert.Equal(t, body, rec.Body.String())
}
