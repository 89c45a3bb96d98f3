package ucm_modbus

import "sync"

func CreateTestUCMModbusClient() *TestUCMClient {
	return &TestUCMClient{
		Commodities: []Commodity{
			{Code: 0, Rate: 4500, Cumulative: 812000},
			{Code: 6, Rate: 0, Cumulative: 3200},
			{Code: 7, Rate: 0, Cumulative: 1700},
		},
		ADC: 93,
	}
}

// TestUCMClient records every command written to it and serves fixed
// readings.
type TestUCMClient struct {
	mu sync.Mutex

	Commodities []Commodity
	ADC         uint16
	// Err, when set, fails every call.
	Err error

	opcodes     []uint16
	outsideComm bool
	open        bool
}

func (c *TestUCMClient) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.open = true
	c.outsideComm = true
	return nil
}

func (c *TestUCMClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

func (c *TestUCMClient) SendBasicDR(opcode uint16, duration uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.opcodes = append(c.opcodes, opcode)
	return nil
}

func (c *TestUCMClient) SetOutsideCommConnection(ok bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.outsideComm = ok
	return nil
}

func (c *TestUCMClient) GetCommodities() ([]Commodity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]Commodity(nil), c.Commodities...), nil
}

func (c *TestUCMClient) GetCurrentTransducerADC() (uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	return c.ADC, nil
}

// Opcodes returns the opcodes sent so far.
func (c *TestUCMClient) Opcodes() []uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint16(nil), c.opcodes...)
}

func (c *TestUCMClient) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
