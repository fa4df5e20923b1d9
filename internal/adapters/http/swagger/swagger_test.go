package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRegister(t *testing.T) {
	Convey("Given a mux with the docs routes registered", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		Convey("GET /api-docs serves the ReDoc page", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api-docs", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(rec.Body.String(), ShouldContainSubstring, "redoc.standalone.js")
			So(rec.Body.String(), ShouldContainSubstring, "/openapi.yaml")
		})

		Convey("GET /openapi.yaml serves the embedded spec", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "yaml")
			So(rec.Body.Len(), ShouldBeGreaterThan, 0)
			So(rec.Body.String(), ShouldStartWith, "openapi:")
		})
	})
}

func TestEmbeddedSpec(t *testing.T) {
	Convey("The embedded spec covers every public route", t, func() {
		spec := string(OpenAPI)
		for _, path := range []string{"/ingest", "/tags", "/timeseries", "/forecast", "/forecast/runs", "/sentiment", "/stats", "/healthz"} {
			So(spec, ShouldContainSubstring, "  "+path+":")
		}
		So(strings.Contains(spec, "tagtrend"), ShouldBeTrue)
	})
}

func TestRegisterPanicsOnNilMux(t *testing.T) {
	Convey("Registering against a nil mux panics", t, func() {
		So(func() { Register(context.Background(), nil) }, ShouldPanic)
	})
}
