package router_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Samoxive/modbot/internal/http/router"
	"github.com/Samoxive/modbot/internal/metrics"
)

var _ = Describe("Admin router", func() {
	var engine *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		engine = router.New(router.RouterConfig{Metrics: metrics.Handler()})
	})

	serve := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	It("serves the health probe", func() {
		w := serve("/health")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
	})

	It("exposes moderation metrics", func() {
		metrics.EventsTotal.WithLabelValues("clean").Inc()

		w := serve("/metrics")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`modbot_events_total{outcome="clean"}`))
		Expect(w.Body.String()).To(ContainSubstring("modbot_classify_duration_seconds"))
	})

	It("leaves metrics unrouted when no handler is given", func() {
		engine = router.New(router.RouterConfig{})

		Expect(serve("/metrics").Code).To(Equal(http.StatusNotFound))
	})

	It("turns handler panics into 500s", func() {
		engine.GET("/panic", func(*gin.Context) { panic("boom") })

		w := serve("/panic")

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"internal server error"}`))
	})
})
