package bind

import (
	"github.com/caesium-cloud/jobassist/api/rest/controller/analysis"
	cachectl "github.com/caesium-cloud/jobassist/api/rest/controller/cache"
	"github.com/caesium-cloud/jobassist/api/rest/controller/profile"
	"github.com/caesium-cloud/jobassist/internal/analyzer"
	"github.com/caesium-cloud/jobassist/internal/cache"
	"github.com/labstack/echo/v4"
)

func All(g *echo.Group, c *cache.Cache, svc *analyzer.Service) {
	Analysis(g, &analysis.Controller{Service: svc})
	Cache(g.Group("/cache"), &cachectl.Controller{Cache: c})
	Profile(g.Group("/profile"), &profile.Controller{Service: svc})
}

func Analysis(g *echo.Group, ctl *analysis.Controller) {
	g.POST("/analyze", ctl.Analyze)
	g.POST("/analyze/batch", ctl.AnalyzeBatch)
	g.POST("/prefilter", ctl.PreFilter)
}

func Cache(g *echo.Group, ctl *cachectl.Controller) {
	g.GET("/stats", ctl.Stats)
	g.DELETE("", ctl.Clear)
	g.POST("/cleanup", ctl.Cleanup)
	g.POST("/bulk", ctl.Bulk)
	g.GET("/storage", ctl.Storage)
}

func Profile(g *echo.Group, ctl *profile.Controller) {
	g.GET("", ctl.Get)
	g.PUT("", ctl.Update)
}
