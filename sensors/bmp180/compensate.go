package bmp180

import "fmt"

// Fixed-point compensation from the datasheet, section 3.5. All of it is
// integer arithmetic: signed 32-bit intermediates with arithmetic right
// shifts, unsigned 32-bit B4 and B7, and truncating division.

// SeaLevelPressure is the standard atmosphere at sea level, in Pa.
const SeaLevelPressure = 101325

// Operating range of the sensor, in tenths of a degree Celsius. A
// compensated temperature outside it comes from a corrupt sample.
const (
	MinTemperature = -400
	MaxTemperature = 850
)

// maxB6 bounds |B6| so that B1*(B6*B6>>12) fits in 32 bits for any B1.
const maxB6 = 16383

// CompensateTemperature converts the raw temperature UT into tenths of a
// degree Celsius. It also returns B5, which pressure compensation for the
// same measurement cycle needs. A sample that cannot be compensated, or
// that lands outside the operating range, yields ErrImplausibleReading.
func CompensateTemperature(ut int16, cal Calibration) (temp int32, b5 int32, err error) {
	// (UT-AC6)*AC5 can exceed 32 bits for out-of-range UT.
	x1 := int32((int64(ut) - int64(cal.AC6)) * int64(cal.AC5) >> 15)
	if x1+int32(cal.MD) == 0 {
		return 0, 0, fmt.Errorf("%w: X1+MD is zero (UT %d)", ErrImplausibleReading, ut)
	}
	x2 := (int32(cal.MC) << 11) / (x1 + int32(cal.MD))
	b5 = x1 + x2
	temp = (b5 + 8) >> 4
	if temp < MinTemperature || temp > MaxTemperature {
		return 0, 0, fmt.Errorf("%w: temperature %d (UT %d)", ErrImplausibleReading, temp, ut)
	}
	return temp, b5, nil
}

// CompensatePressure converts the raw pressure UP, sampled at oss, into Pa.
// b5 must come from CompensateTemperature of the same measurement cycle.
func CompensatePressure(up int32, oss OSS, b5 int32, cal Calibration) (int32, error) {
	b6 := b5 - 4000
	if b6 > maxB6 || b6 < -maxB6 {
		return 0, fmt.Errorf("%w: B5 %d", ErrImplausibleReading, b5)
	}
	x1 := (int32(cal.B2) * (b6 * b6 >> 12)) >> 11
	x2 := int32(cal.AC2) * b6 >> 11
	x3 := x1 + x2
	b3 := ((int32(cal.AC1)*4+x3)<<oss + 2) / 4

	x1 = int32(cal.AC3) * b6 >> 13
	x2 = (int32(cal.B1) * (b6 * b6 >> 12)) >> 16
	x3 = (x1 + x2 + 2) >> 2
	b4 := uint32(cal.AC4) * uint32(x3+32768) >> 15
	if b4 == 0 {
		return 0, fmt.Errorf("%w: B4 is zero (UP %d)", ErrImplausibleReading, up)
	}
	b7 := uint32(up-b3) * uint32(50000>>oss)

	var p int32
	if b7 < 0x80000000 {
		p = int32(b7 * 2 / b4)
	} else {
		p = int32(b7 / b4 * 2)
	}

	x1 = (p >> 8) * (p >> 8)
	x1 = x1 * 3038 >> 16
	x2 = -7357 * p >> 16
	return p + (x1+x2+3791)>>4, nil
}

// Altitude returns the height in meters above the standard sea level
// pressure. It is the linear approximation of the barometric formula and is
// only meaningful near sea level.
func Altitude(pa int32) int32 {
	return int32(44330 * (SeaLevelPressure - int64(pa)) / SeaLevelPressure)
}

// TempClass is a coarse temperature bucket.
type TempClass int

const (
	Cold TempClass = iota // below 20 °C
	Warm                  // 20 °C up to 30 °C
	Hot                   // 30 °C and above
)

func (c TempClass) String() string {
	switch c {
	case Cold:
		return "Cold"
	case Warm:
		return "Warm"
	case Hot:
		return "Hot"
	}
	return "Unknown"
}

// ClassifyTemperature buckets a temperature given in tenths of a degree.
// Whole degrees are truncated toward zero before comparing.
func ClassifyTemperature(deciC int32) TempClass {
	c := deciC / 10
	switch {
	case c < 20:
		return Cold
	case c < 30:
		return Warm
	}
	return Hot
}
