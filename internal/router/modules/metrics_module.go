package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/collabhub/collabhub/internal/interface/middleware"
)

// MetricsModule exposes Prometheus metrics to private networks only.
type MetricsModule struct{}

func NewMetricsModule() *MetricsModule { return &MetricsModule{} }

func (m *MetricsModule) Register(rg *gin.RouterGroup) {
	rg.GET("/metrics", middleware.RequirePrivateIP(), gin.WrapH(promhttp.Handler()))
}
