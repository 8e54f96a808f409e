package rest

import (
	"github.com/caesium-cloud/jobassist/api/rest/bind"
	"github.com/caesium-cloud/jobassist/internal/analyzer"
	"github.com/caesium-cloud/jobassist/internal/cache"
	"github.com/labstack/echo/v4"
)

// Dependencies are the services the REST controllers operate on.
type Dependencies struct {
	Cache    *cache.Cache
	Analyzer *analyzer.Service
}

// Bind the REST endpoints to the versioned endpoint group.
func Bind(group *echo.Group, deps Dependencies) {
	bind.All(group, deps.Cache, deps.Analyzer)
}
