package profile

import (
	"net/http"

	"github.com/caesium-cloud/jobassist/internal/analyzer"
	"github.com/labstack/echo/v4"
)

// Controller serves the candidate profile sent with analysis requests.
type Controller struct {
	Service *analyzer.Service
}

// Get returns the current profile.
func (ctl *Controller) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, ctl.Service.Profile())
}

// Update replaces the profile. Later analyses use the new profile;
// cached analyses are not invalidated.
func (ctl *Controller) Update(c echo.Context) error {
	var p analyzer.Profile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid profile").SetInternal(err)
	}

	if err := p.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := ctl.Service.UpdateProfile(p); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save profile").SetInternal(err)
	}

	return c.JSON(http.StatusOK, ctl.Service.Profile())
}
