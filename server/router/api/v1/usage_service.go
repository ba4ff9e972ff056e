package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/tempo/server/finops"
)

func (s *APIV1Service) usageStats(c echo.Context) error {
	frame := finops.Timeframe(c.QueryParam("timeframe"))
	switch frame {
	case finops.TimeframeToday, finops.TimeframeMonth, finops.TimeframeAll:
	case "":
		frame = finops.TimeframeToday
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown timeframe")
	}
	return c.JSON(http.StatusOK, s.tracker.Stats(userID(c), frame))
}

func (s *APIV1Service) usageLimits(c echo.Context) error {
	return c.JSON(http.StatusOK, s.tracker.CheckLimits(userID(c)))
}
