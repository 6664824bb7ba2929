package bmp180

// AcquireRawTemperature starts a temperature conversion, waits for it and
// returns the uncompensated reading UT.
func (d *Device) AcquireRawTemperature() (int16, error) {
	if err := d.writeRegister(RegControl, CmdTemp); err != nil {
		return 0, err
	}
	d.wait(tempConversion)

	w, err := d.readWord(RegResult)
	if err != nil {
		return 0, err
	}
	return int16(w), nil
}

// AcquireRawPressure starts a pressure conversion at the given oversampling
// setting, waits for it and returns the uncompensated reading UP.
// An invalid setting is rejected before the bus is touched.
func (d *Device) AcquireRawPressure(oss OSS) (int32, error) {
	if !oss.Valid() {
		return 0, ErrInvalidOSS
	}
	if err := d.writeRegister(RegControl, CmdPressure+byte(oss)<<6); err != nil {
		return 0, err
	}
	d.wait(oss.ConversionTime())

	var b [3]byte
	for i := range b {
		v, err := d.readRegister(RegResult + byte(i))
		if err != nil {
			return 0, err
		}
		b[i] = v
	}
	up := (int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])) >> (8 - uint(oss))
	return up, nil
}
