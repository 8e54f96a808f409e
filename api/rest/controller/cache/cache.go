package cache

import (
	"net/http"

	"github.com/caesium-cloud/jobassist/internal/cache"
	"github.com/caesium-cloud/jobassist/pkg/bytes"
	"github.com/labstack/echo/v4"
)

// Controller serves analysis cache administration endpoints.
type Controller struct {
	Cache *cache.Cache
}

// ClearResponse reports how many entries were removed.
type ClearResponse struct {
	Cleared int `json:"cleared"`
}

// CleanupResponse reports the outcome of a forced cleanup.
type CleanupResponse struct {
	Tier    cache.Tier `json:"tier"`
	Removed int        `json:"removed"`
}

// BulkResponse reports the expiry in force after entering bulk mode.
type BulkResponse struct {
	BulkMode    bool    `json:"bulkMode"`
	ExpiryHours float64 `json:"expiryHours"`
}

// StorageResponse reports store consumption.
type StorageResponse struct {
	cache.Usage
	Used  string `json:"used"`
	Quota string `json:"quota"`
}

// Stats returns a cache snapshot.
func (ctl *Controller) Stats(c echo.Context) error {
	stats := ctl.Cache.Stats(c.Request().Context())
	if stats.Error != "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, stats.Error)
	}
	return c.JSON(http.StatusOK, stats)
}

// Clear empties the cache.
func (ctl *Controller) Clear(c echo.Context) error {
	return c.JSON(http.StatusOK, ClearResponse{
		Cleared: ctl.Cache.Clear(c.Request().Context()),
	})
}

// Cleanup forces a cleanup tier, aggressive unless the tier query
// parameter says otherwise.
func (ctl *Controller) Cleanup(c echo.Context) error {
	tier := cache.TierAggressive

	if raw := c.QueryParam("tier"); raw != "" {
		t, err := cache.ParseTier(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		tier = t
	}

	return c.JSON(http.StatusOK, CleanupResponse{
		Tier:    tier,
		Removed: ctl.Cache.ForceCleanup(c.Request().Context(), tier),
	})
}

// Bulk enables bulk mode ahead of a burst of writes.
func (ctl *Controller) Bulk(c echo.Context) error {
	ctl.Cache.EnterBulkMode(c.Request().Context())

	return c.JSON(http.StatusOK, BulkResponse{
		BulkMode:    ctl.Cache.BulkMode(),
		ExpiryHours: ctl.Cache.Expiry().Hours(),
	})
}

// Storage returns store usage without triggering cleanup.
func (ctl *Controller) Storage(c echo.Context) error {
	u := ctl.Cache.Usage(c.Request().Context())

	return c.JSON(http.StatusOK, StorageResponse{
		Usage: u,
		Used:  bytes.Format(u.UsedBytes),
		Quota: bytes.Format(u.QuotaBytes),
	})
}
