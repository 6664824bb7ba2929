// Package bmp180 provides a driver for Bosch's BMP180 digital pressure & temperature sensor.
// The datasheet can be found here: https://cdn-shop.adafruit.com/datasheets/BST-BMP180-DS000-09.pdf
package bmp180

import "time"

const Address byte = 0x77 // default I2C address

const (
	RegChipId  byte = 0xD0 // useful for checking the connection
	RegControl byte = 0xF4 // measurement control
	RegResult  byte = 0xF6 // start of the conversion result registers (MSB, LSB, XLSB)
)

// Calibration coefficient registers, each the MSB of a big-endian word.
const (
	RegCalAC1 byte = 0xAA
	RegCalAC2 byte = 0xAC
	RegCalAC3 byte = 0xAE
	RegCalAC4 byte = 0xB0
	RegCalAC5 byte = 0xB2
	RegCalAC6 byte = 0xB4
	RegCalB1  byte = 0xB6
	RegCalB2  byte = 0xB8
	RegCalMB  byte = 0xBA
	RegCalMC  byte = 0xBC
	RegCalMD  byte = 0xBE
)

const (
	ChipId      byte = 0x55 // correct response if reading from chip id register
	CmdTemp     byte = 0x2E // start temperature conversion
	CmdPressure byte = 0x34 // start pressure conversion, oss goes in bits 6-7
)

// OSS is the pressure oversampling setting. Higher values trade conversion
// time for resolution.
type OSS uint8

const (
	UltraLowPower OSS = iota
	Standard
	HighRes
	UltraHighRes
)

// Conversion times from the datasheet, table 8.
const tempConversion = 5 * time.Millisecond

var pressureConversion = [...]time.Duration{
	UltraLowPower: 5 * time.Millisecond,
	Standard:      8 * time.Millisecond,
	HighRes:       14 * time.Millisecond,
	UltraHighRes:  26 * time.Millisecond,
}

// Valid reports whether oss is one of the four settings the sensor supports.
func (oss OSS) Valid() bool {
	return int(oss) < len(pressureConversion)
}

// ConversionTime returns how long a pressure conversion at this setting takes.
// It is zero for invalid settings.
func (oss OSS) ConversionTime() time.Duration {
	if !oss.Valid() {
		return 0
	}
	return pressureConversion[oss]
}
