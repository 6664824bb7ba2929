package bmp180

import "periph.io/x/conn/v3/i2c"

// PeriphBus adapts a periph.io I2C bus to Bus.
type PeriphBus struct {
	Bus i2c.Bus
}

func (p PeriphBus) ReadByteFromReg(addr, reg byte) (byte, error) {
	var v [1]byte
	if err := p.Bus.Tx(uint16(addr), []byte{reg}, v[:]); err != nil {
		return 0, err
	}
	return v[0], nil
}

func (p PeriphBus) WriteByteToReg(addr, reg, value byte) error {
	return p.Bus.Tx(uint16(addr), []byte{reg, value}, nil)
}
