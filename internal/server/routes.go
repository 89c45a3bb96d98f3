package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/berfenger/der2mqtt/internal/core/actor"
	"github.com/berfenger/der2mqtt/internal/core/der"
	"github.com/berfenger/der2mqtt/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type setpointsResponse struct {
	ImportSetpoint float64 `json:"import_setpoint"`
	ExportSetpoint float64 `json:"export_setpoint"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/properties", s.PropertiesHandler)
	e.GET("/properties/:name", s.PropertyHandler)
	e.PUT("/setpoints/import/:watts", s.ImportSetpointHandler)
	e.PUT("/setpoints/export/:watts", s.ExportSetpointHandler)
	e.POST("/water_heater/:event", s.WaterHeaterEventHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	response, err := s.controller.Health()
	if err != nil || !response.Healthy {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	return c.String(http.StatusOK, "health_check: OK")
}

func (s *Server) PropertiesHandler(c echo.Context) error {
	props, err := s.controller.Properties()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, props)
}

func (s *Server) PropertyHandler(c echo.Context) error {
	name := c.Param("name")
	value, err := s.controller.Property(name)
	if errors.Is(err, der.ErrUnknownProperty) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]uint32{name: value})
}

func (s *Server) ImportSetpointHandler(c echo.Context) error {
	return s.setpoint(c, s.controller.SetImportSetpoint)
}

func (s *Server) ExportSetpointHandler(c echo.Context) error {
	return s.setpoint(c, s.controller.SetExportSetpoint)
}

func (s *Server) setpoint(c echo.Context, set func(float64) (domain.SetSetpointResponse, error)) error {
	watts, err := strconv.ParseUint(c.Param("watts"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "watts must be an unsigned integer")
	}
	res, err := set(float64(watts))
	if err == nil {
		err = res.GetResponseError()
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, setpointsResponse{
		ImportSetpoint: res.ImportSetpoint,
		ExportSetpoint: res.ExportSetpoint,
	})
}

func (s *Server) WaterHeaterEventHandler(c echo.Context) error {
	cmd, ok := domain.ButtonCommand(c.Param("event"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown event")
	}
	err := s.controller.WaterHeaterEvent(cmd)
	if errors.Is(err, actor.ErrNoWaterHeater) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}
