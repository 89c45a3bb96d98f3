package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/berfenger/der2mqtt/internal/core/actor"
	"github.com/berfenger/der2mqtt/internal/core/der"
	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockController struct {
	mock.Mock
}

func (m *mockController) Health() (domain.ActorHealthResponse, error) {
	args := m.Called()
	return args.Get(0).(domain.ActorHealthResponse), args.Error(1)
}

func (m *mockController) Property(name string) (uint32, error) {
	args := m.Called(name)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *mockController) Properties() (map[string]uint32, error) {
	args := m.Called()
	return args.Get(0).(map[string]uint32), args.Error(1)
}

func (m *mockController) SetImportSetpoint(watts float64) (domain.SetSetpointResponse, error) {
	args := m.Called(watts)
	return args.Get(0).(domain.SetSetpointResponse), args.Error(1)
}

func (m *mockController) SetExportSetpoint(watts float64) (domain.SetSetpointResponse, error) {
	args := m.Called(watts)
	return args.Get(0).(domain.SetSetpointResponse), args.Error(1)
}

func (m *mockController) WaterHeaterEvent(cmd domain.DeviceCommand) error {
	return m.Called(cmd).Error(0)
}

func serve(c Controller, method, target string) *httptest.ResponseRecorder {
	s := &Server{controller: c}
	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthCheck(t *testing.T) {

	m := &mockController{}
	m.On("Health").Return(domain.ActorHealthResponse{Healthy: true}, nil).Once()
	m.On("Health").Return(domain.ActorHealthResponse{}, errors.New("timeout")).Once()

	rec := serve(m, http.MethodGet, "/healthcheck")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "health_check: OK", rec.Body.String())

	rec = serve(m, http.MethodGet, "/healthcheck")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	m.AssertExpectations(t)
}

func TestPropertyGet(t *testing.T) {

	m := &mockController{}
	m.On("Property", der.PropImportEnergy).Return(uint32(2500), nil)
	m.On("Property", "voltage").Return(uint32(0), fmt.Errorf("%w: %q", der.ErrUnknownProperty, "voltage"))

	rec := serve(m, http.MethodGet, "/properties/import_energy")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"import_energy":2500}`, rec.Body.String())

	rec = serve(m, http.MethodGet, "/properties/voltage")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPropertiesGet(t *testing.T) {

	m := &mockController{}
	m.On("Properties").Return(map[string]uint32{der.PropImportPower: 10, der.PropExportPower: 0}, nil)

	rec := serve(m, http.MethodGet, "/properties")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"import_power":10,"export_power":0}`, rec.Body.String())
}

func TestSetpoints(t *testing.T) {

	m := &mockController{}
	m.On("SetImportSetpoint", 400.0).Return(domain.SetSetpointResponse{ImportSetpoint: 400}, nil)
	m.On("SetExportSetpoint", 0.0).Return(domain.SetSetpointResponse{}, nil)

	rec := serve(m, http.MethodPut, "/setpoints/import/400")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"import_setpoint":400,"export_setpoint":0}`, rec.Body.String())

	rec = serve(m, http.MethodPut, "/setpoints/export/0")
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, bad := range []string{"-1", "abc", "1.5"} {
		rec = serve(m, http.MethodPut, "/setpoints/import/"+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
	m.AssertNumberOfCalls(t, "SetImportSetpoint", 1)
}

func TestWaterHeaterEvent(t *testing.T) {

	m := &mockController{}
	m.On("WaterHeaterEvent", domain.CommandLoadUp).Return(nil)
	m.On("WaterHeaterEvent", domain.CommandCriticalPeak).Return(actor.ErrNoWaterHeater)

	assert.Equal(t, http.StatusAccepted, serve(m, http.MethodPost, "/water_heater/"+domain.BUTTON_ID_LOAD_UP).Code)
	assert.Equal(t, http.StatusConflict, serve(m, http.MethodPost, "/water_heater/"+domain.BUTTON_ID_CRITICAL_PEAK).Code)
	assert.Equal(t, http.StatusNotFound, serve(m, http.MethodPost, "/water_heater/defrost").Code)
}

func TestNewServerAddr(t *testing.T) {

	srv := NewServer(util.LoadTestConfig(), &mockController{})
	assert.Equal(t, ":8080", srv.Addr)
}
