package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/logging"
	"github.com/sudo-init-do/chirp/internal/metrics"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "propagated", header: "req-123"},
		{name: "generated", header: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderXRequestID, tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var fromCtx string
			err := RequestID()(func(c echo.Context) error {
				fromCtx = logging.RequestIDFromContext(c.Request().Context())
				return nil
			})(c)
			if err != nil {
				t.Fatal(err)
			}

			got := rec.Header().Get(echo.HeaderXRequestID)
			if got == "" || got != fromCtx {
				t.Errorf("response id %q, context id %q", got, fromCtx)
			}
			if tt.header != "" && got != tt.header {
				t.Errorf("id = %q, want %q", got, tt.header)
			}
		})
	}
}

func TestAccessLog_RendersErrorBeforeCounting(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	e.GET("/limited", func(echo.Context) error {
		return apperr.RateLimited("slow down")
	}, AccessLog())

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/limited", "429")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/limited", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("429 count = %v, want %v", got, before+1)
	}
}

func TestAccessLog_CountsRecoveredPanics(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	e.Use(AccessLog())
	e.Use(middleware.Recover())
	e.GET("/boom", func(echo.Context) error {
		panic("boom")
	})

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/boom", "500")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("500 count = %v, want %v", got, before+1)
	}
}
