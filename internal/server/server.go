package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/der2mqtt/internal/config"
	"github.com/berfenger/der2mqtt/internal/core/domain"

	_ "github.com/joho/godotenv/autoload"
)

// Controller is the subset of the master actor client used by the routes.
type Controller interface {
	Health() (domain.ActorHealthResponse, error)
	Property(name string) (uint32, error)
	Properties() (map[string]uint32, error)
	SetImportSetpoint(watts float64) (domain.SetSetpointResponse, error)
	SetExportSetpoint(watts float64) (domain.SetSetpointResponse, error)
	WaterHeaterEvent(cmd domain.DeviceCommand) error
}

type Server struct {
	port       uint
	httpLog    bool
	controller Controller
}

func NewServer(cfg config.Config, controller Controller) *http.Server {
	NewServer := &Server{
		port:       cfg.Port,
		httpLog:    cfg.HttpLog,
		controller: controller,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
