package ucm

import (
	"testing"

	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/core/port"
	"github.com/berfenger/der2mqtt/pkg/ucm_modbus"

	"github.com/stretchr/testify/require"
)

func TestCommandsMapToOpcodes(t *testing.T) {

	require := require.New(t)

	client := ucm_modbus.CreateTestUCMModbusClient()
	d := NewDriver(client)
	require.NoError(d.Open())

	for _, cmd := range []domain.DeviceCommand{
		domain.CommandStartConsumption,
		domain.CommandSuppressConsumption,
		domain.CommandCriticalPeak,
		domain.CommandLoadUp,
		domain.CommandGridEmergency,
	} {
		require.NoError(port.Send(d, cmd))
	}
	require.ErrorIs(port.Send(d, domain.DeviceCommand(99)), domain.ErrUnknownCommand)

	require.Equal([]uint16{
		ucm_modbus.OpEndShed,
		ucm_modbus.OpShed,
		ucm_modbus.OpCriticalPeak,
		ucm_modbus.OpLoadUp,
		ucm_modbus.OpGridEmergency,
	}, client.Opcodes())
}

func TestReadings(t *testing.T) {

	require := require.New(t)

	client := ucm_modbus.CreateTestUCMModbusClient()
	d := NewDriver(client)

	commodities, err := d.Commodities()
	require.NoError(err)
	require.Equal(domain.Commodity{Code: domain.CommodityTotalEnergyStorage, Cumulative: 3200}, commodities[1])

	watts, err := d.MeasuredPower()
	require.NoError(err)
	require.InDelta(ucm_modbus.ADCToWatts(93), watts, 1e-9)
}
