package ucm_modbus

import "time"

// Basic DR opcodes understood by the UCM bridge.
const (
	OpShed          uint16 = 0x01
	OpEndShed       uint16 = 0x02
	OpCriticalPeak  uint16 = 0x0A
	OpGridEmergency uint16 = 0x0B
	OpLoadUp        uint16 = 0x17
)

// Holding registers accept commands, input registers expose readings.
const (
	regOpcode      uint16 = 0
	regDuration    uint16 = 1
	regOutsideComm uint16 = 2

	regCommodityCount uint16 = 20
	regCommodityBase  uint16 = 21
	commodityWidth    uint16 = 5
	maxCommodities    uint16 = 8

	regTransducerADC uint16 = 50
)

// DurationUnbounded asks the UCM to hold a command until the next one.
const DurationUnbounded uint16 = 0

const (
	adcFullScale     = 1023.0
	adcReferenceVolt = 4.4
	transducerAmpsV  = 10.0
	lineVoltage      = 240.0
)

type Commodity struct {
	Code uint8
	// Instantaneous rate in W
	Rate float64
	// Cumulative amount in Wh
	Cumulative float64
}

type UCMModbusClient interface {
	Open() error
	Close() error
	// SendBasicDR writes a basic DR opcode and its duration in seconds.
	SendBasicDR(opcode uint16, duration uint16) error
	SetOutsideCommConnection(ok bool) error
	GetCommodities() ([]Commodity, error)
	GetCurrentTransducerADC() (uint16, error)
}

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

// ADCToWatts converts a current transducer sample into real power at line
// voltage.
func ADCToWatts(adc uint16) float64 {
	amps := float64(adc) / adcFullScale * adcReferenceVolt * transducerAmpsV
	return amps * lineVoltage
}
