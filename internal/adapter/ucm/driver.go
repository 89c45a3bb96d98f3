package ucm

import (
	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/core/port"
	"github.com/berfenger/der2mqtt/pkg/ucm_modbus"
)

// Driver maps abstract device commands onto UCM basic DR opcodes.
type Driver struct {
	client ucm_modbus.UCMModbusClient
}

var _ port.Driver = (*Driver)(nil)

func NewDriver(client ucm_modbus.UCMModbusClient) *Driver {
	return &Driver{client: client}
}

func (d *Driver) Open() error {
	return d.client.Open()
}

func (d *Driver) Close() error {
	return d.client.Close()
}

func (d *Driver) StartConsumption() error {
	return d.client.SendBasicDR(ucm_modbus.OpEndShed, ucm_modbus.DurationUnbounded)
}

func (d *Driver) SuppressConsumption() error {
	return d.client.SendBasicDR(ucm_modbus.OpShed, ucm_modbus.DurationUnbounded)
}

func (d *Driver) CriticalPeak() error {
	return d.client.SendBasicDR(ucm_modbus.OpCriticalPeak, ucm_modbus.DurationUnbounded)
}

func (d *Driver) LoadUp() error {
	return d.client.SendBasicDR(ucm_modbus.OpLoadUp, ucm_modbus.DurationUnbounded)
}

func (d *Driver) GridEmergency() error {
	return d.client.SendBasicDR(ucm_modbus.OpGridEmergency, ucm_modbus.DurationUnbounded)
}

func (d *Driver) Commodities() ([]domain.Commodity, error) {
	raw, err := d.client.GetCommodities()
	if err != nil {
		return nil, err
	}
	commodities := make([]domain.Commodity, len(raw))
	for i, c := range raw {
		commodities[i] = domain.Commodity{Code: c.Code, Rate: c.Rate, Cumulative: c.Cumulative}
	}
	return commodities, nil
}

func (d *Driver) MeasuredPower() (float64, error) {
	adc, err := d.client.GetCurrentTransducerADC()
	if err != nil {
		return 0, err
	}
	return ucm_modbus.ADCToWatts(adc), nil
}
