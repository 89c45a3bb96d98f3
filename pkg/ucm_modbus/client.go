package ucm_modbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

type UCMClient struct {
	client     *modbus.ModbusClient
	instrument []ModbusInstrument
	logger     *zap.Logger
}

func CreateUCMModbusClient(ip string, port uint, unitId uint8, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (UCMModbusClient, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", ip, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("target", "ucm"), zap.Uint8("unit", unitId))
	inst := []ModbusInstrument{debugLoggerInstrumentation(logger)}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	if unitId > 0 {
		if err = client.SetUnitId(unitId); err != nil {
			return nil, err
		}
	}

	return &UCMClient{
		client:     client,
		instrument: inst,
		logger:     logger,
	}, nil
}

func (c *UCMClient) Open() error {
	if err := c.client.Open(); err != nil {
		return err
	}
	return c.SetOutsideCommConnection(true)
}

func (c *UCMClient) Close() error {
	return c.client.Close()
}

func (c *UCMClient) SendBasicDR(opcode uint16, duration uint16) error {
	defer recordTimer("SendBasicDR", c.instrument)()
	return c.client.WriteRegisters(regOpcode, []uint16{opcode, duration})
}

func (c *UCMClient) SetOutsideCommConnection(ok bool) error {
	defer recordTimer("SetOutsideCommConnection", c.instrument)()
	var v uint16
	if ok {
		v = 1
	}
	return c.client.WriteRegister(regOutsideComm, v)
}

func (c *UCMClient) GetCommodities() ([]Commodity, error) {
	defer recordTimer("GetCommodities", c.instrument)()
	count, err := c.client.ReadRegister(regCommodityCount, modbus.INPUT_REGISTER)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if count > maxCommodities {
		return nil, fmt.Errorf("ucm: commodity count %d exceeds %d", count, maxCommodities)
	}
	regs, err := c.client.ReadRegisters(regCommodityBase, count*commodityWidth, modbus.INPUT_REGISTER)
	if err != nil {
		return nil, err
	}
	return decodeCommodities(regs)
}

func (c *UCMClient) GetCurrentTransducerADC() (uint16, error) {
	defer recordTimer("GetCurrentTransducerADC", c.instrument)()
	return c.client.ReadRegister(regTransducerADC, modbus.INPUT_REGISTER)
}

// decodeCommodities reads blocks of code, rate (u32) and cumulative (u32),
// high word first.
func decodeCommodities(regs []uint16) ([]Commodity, error) {
	if len(regs)%int(commodityWidth) != 0 {
		return nil, fmt.Errorf("ucm: %d registers is not a whole number of commodities", len(regs))
	}
	commodities := make([]Commodity, 0, len(regs)/int(commodityWidth))
	for i := 0; i < len(regs); i += int(commodityWidth) {
		block := regs[i : i+int(commodityWidth)]
		if block[0] > 0xff {
			return nil, fmt.Errorf("ucm: invalid commodity code %d", block[0])
		}
		commodities = append(commodities, Commodity{
			Code:       uint8(block[0]),
			Rate:       float64(uint32(block[1])<<16 | uint32(block[2])),
			Cumulative: float64(uint32(block[3])<<16 | uint32(block[4])),
		})
	}
	return commodities, nil
}

func debugLoggerInstrumentation(logger *zap.Logger) ModbusInstrument {
	return ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("modbus call", zap.String("fn", fnName), zap.Duration("took", readTime))
		},
	}
}

func recordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}
