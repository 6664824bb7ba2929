package bmp180

// Calibration holds the eleven factory coefficients stored in the sensor's
// EEPROM. They are read once per session and never change afterwards.
type Calibration struct {
	AC1, AC2, AC3 int16
	AC4, AC5, AC6 uint16
	B1, B2        int16
	MB, MC, MD    int16
}

// LoadCalibration reads the calibration coefficients. The values are not
// validated; a failed register read fails the whole load.
func (d *Device) LoadCalibration() (Calibration, error) {
	var (
		cal Calibration
		w   [11]uint16
		err error
	)
	regs := [11]byte{
		RegCalAC1, RegCalAC2, RegCalAC3, RegCalAC4, RegCalAC5, RegCalAC6,
		RegCalB1, RegCalB2, RegCalMB, RegCalMC, RegCalMD,
	}
	for i, reg := range regs {
		if w[i], err = d.readWord(reg); err != nil {
			return Calibration{}, err
		}
	}

	cal.AC1 = int16(w[0])
	cal.AC2 = int16(w[1])
	cal.AC3 = int16(w[2])
	cal.AC4 = w[3]
	cal.AC5 = w[4]
	cal.AC6 = w[5]
	cal.B1 = int16(w[6])
	cal.B2 = int16(w[7])
	cal.MB = int16(w[8])
	cal.MC = int16(w[9])
	cal.MD = int16(w[10])
	return cal, nil
}
