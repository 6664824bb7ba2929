package bmp180

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidOSS   = errors.New("bmp180: oversampling setting must be 0..3")
	ErrNotConnected = errors.New("bmp180: not connected")

	// ErrImplausibleReading reports a raw sample the compensation cannot turn
	// into a measurement, such as one from a glitched transfer.
	ErrImplausibleReading = errors.New("bmp180: implausible reading")
)

// Bus is the part of an I2C bus the driver needs: single byte register reads
// and writes. embd.I2CBus satisfies it.
type Bus interface {
	ReadByteFromReg(addr, reg byte) (byte, error)
	WriteByteToReg(addr, reg, value byte) error
}

// BusError reports a register transaction that did not complete.
type BusError struct {
	Op  string // "read" or "write"
	Reg byte
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bmp180: %s register 0x%02X: %v", e.Op, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// Device wraps the I2C connection to a BMP180. It holds no measurement state;
// callers serialise access to it.
type Device struct {
	Bus     Bus
	Address byte

	// Sleep waits out a conversion. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// New returns a Device at the given address. An address of 0 selects the default.
func New(bus Bus, addr byte) *Device {
	if addr == 0 {
		addr = Address
	}
	return &Device{Bus: bus, Address: addr, Sleep: time.Sleep}
}

// Connected returns true if i2c comm was good and the chip id register answers 0x55.
func (d *Device) Connected() bool {
	id, err := d.readRegister(RegChipId)
	return err == nil && id == ChipId
}

func (d *Device) wait(dur time.Duration) {
	if d.Sleep == nil {
		time.Sleep(dur)
		return
	}
	d.Sleep(dur)
}

func (d *Device) readRegister(reg byte) (byte, error) {
	v, err := d.Bus.ReadByteFromReg(d.Address, reg)
	if err != nil {
		return 0, &BusError{Op: "read", Reg: reg, Err: err}
	}
	return v, nil
}

func (d *Device) writeRegister(reg, value byte) error {
	if err := d.Bus.WriteByteToReg(d.Address, reg, value); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

// readWord reads the big-endian word whose MSB lives at reg.
func (d *Device) readWord(reg byte) (uint16, error) {
	msb, err := d.readRegister(reg)
	if err != nil {
		return 0, err
	}
	lsb, err := d.readRegister(reg + 1)
	if err != nil {
		return 0, err
	}
	return uint16(msb)<<8 | uint16(lsb), nil
}
