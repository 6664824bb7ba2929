package sensors

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/b3nn0/bmp180d/sensors/bmp180"
	"periph.io/x/conn/v3/physic"
)

// Command is one of the four requests the BMP180 answers. The set is closed:
// only the types in this file implement it.
type Command interface {
	command()
	String() string
}

// ReadTemperatureCmd returns the temperature in tenths of a degree C.
type ReadTemperatureCmd struct{}

// ReadPressureCmd returns the pressure in Pa sampled at OSS.
type ReadPressureCmd struct {
	OSS bmp180.OSS
}

// ReadAltitudeCmd returns the altitude in meters, from a pressure sampled at
// the lowest oversampling setting.
type ReadAltitudeCmd struct{}

// TemperatureLevelCmd returns the temperature class id (Cold=0, Warm=1, Hot=2).
type TemperatureLevelCmd struct{}

func (ReadTemperatureCmd) command()  {}
func (ReadPressureCmd) command()     {}
func (ReadAltitudeCmd) command()     {}
func (TemperatureLevelCmd) command() {}

func (ReadTemperatureCmd) String() string  { return "read_temperature" }
func (ReadPressureCmd) String() string     { return "read_pressure" }
func (ReadAltitudeCmd) String() string     { return "read_altitude" }
func (TemperatureLevelCmd) String() string { return "get_temperature_level" }

// Numeric command codes, matching the bmp180 character device ioctl numbers.
const (
	CodeReadTemperature = iota
	CodeReadPressure
	CodeReadAltitude
	CodeGetTemperatureLevel
)

// ParseCommand builds a Command from a numeric code. oss is only used by
// CodeReadPressure. Unknown codes and out of range oss are ErrInvalidInput.
func ParseCommand(code int, oss int) (Command, error) {
	switch code {
	case CodeReadTemperature:
		return ReadTemperatureCmd{}, nil
	case CodeReadPressure:
		if oss < 0 || oss > int(bmp180.UltraHighRes) {
			return nil, fmt.Errorf("%w: %w (got %d)", ErrInvalidInput, bmp180.ErrInvalidOSS, oss)
		}
		return ReadPressureCmd{OSS: bmp180.OSS(oss)}, nil
	case CodeReadAltitude:
		return ReadAltitudeCmd{}, nil
	case CodeGetTemperatureLevel:
		return TemperatureLevelCmd{}, nil
	}
	return nil, fmt.Errorf("%w: unknown command %d", ErrInvalidInput, code)
}

// ParseCommandName is ParseCommand for the command names returned by
// Command.String. Numeric strings are accepted as codes.
func ParseCommandName(name string, oss int) (Command, error) {
	switch name {
	case ReadTemperatureCmd{}.String():
		return ParseCommand(CodeReadTemperature, oss)
	case ReadPressureCmd{}.String():
		return ParseCommand(CodeReadPressure, oss)
	case ReadAltitudeCmd{}.String():
		return ParseCommand(CodeReadAltitude, oss)
	case TemperatureLevelCmd{}.String():
		return ParseCommand(CodeGetTemperatureLevel, oss)
	}
	if code, err := strconv.Atoi(name); err == nil {
		return ParseCommand(code, oss)
	}
	return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidInput, name)
}

// Reading is the result of one command.
type Reading struct {
	Value       int32 // the command's answer, in the command's unit
	Temperature int32 // tenths of a degree C, measured by every command
	Pressure    int32 // Pa; zero unless the command measured pressure
	OSS         bmp180.OSS
}

// BMP180 serialises access to a single BMP180. Every command runs as one
// exclusive section that spans all of its conversions and their waits, so a
// pressure is always compensated with the B5 of the temperature sample the
// same request triggered.
type BMP180 struct {
	mu    sync.Mutex
	dev   *bmp180.Device
	cal   bmp180.Calibration
	ready bool

	oss bmp180.OSS // used by Pressure and Sense
}

// NewBMP180 attaches to the BMP180 at addr (0 for the default address) and
// loads its calibration.
func NewBMP180(bus bmp180.Bus, addr byte) (*BMP180, error) {
	bmp := newBMP180(bmp180.New(bus, addr))
	if err := bmp.Attach(); err != nil {
		return nil, err
	}
	return bmp, nil
}

func newBMP180(dev *bmp180.Device) *BMP180 {
	return &BMP180{dev: dev}
}

// Attach (re)initialises the session: it checks the chip id and reads the
// calibration. On failure the sensor stays uninitialised.
func (bmp *BMP180) Attach() error {
	bmp.mu.Lock()
	defer bmp.mu.Unlock()

	bmp.ready = false
	if !bmp.dev.Connected() {
		return classify(bmp180.ErrNotConnected)
	}
	cal, err := bmp.dev.LoadCalibration()
	if err != nil {
		return classify(err)
	}
	bmp.cal = cal
	bmp.ready = true
	return nil
}

// Calibration returns the coefficients of the current session.
func (bmp *BMP180) Calibration() (bmp180.Calibration, error) {
	bmp.mu.Lock()
	defer bmp.mu.Unlock()
	if !bmp.ready {
		return bmp180.Calibration{}, ErrUninitialized
	}
	return bmp.cal, nil
}

// SetOSS sets the oversampling used by Pressure and Sense.
func (bmp *BMP180) SetOSS(oss bmp180.OSS) error {
	if !oss.Valid() {
		return classify(bmp180.ErrInvalidOSS)
	}
	bmp.mu.Lock()
	bmp.oss = oss
	bmp.mu.Unlock()
	return nil
}

// Execute runs cmd. Input is validated before the bus is touched.
func (bmp *BMP180) Execute(cmd Command) (Reading, error) {
	switch c := cmd.(type) {
	case ReadPressureCmd:
		if !c.OSS.Valid() {
			return Reading{}, classify(bmp180.ErrInvalidOSS)
		}
	case ReadTemperatureCmd, ReadAltitudeCmd, TemperatureLevelCmd:
	default:
		return Reading{}, fmt.Errorf("%w: unknown command %T", ErrInvalidInput, cmd)
	}

	bmp.mu.Lock()
	defer bmp.mu.Unlock()
	if !bmp.ready {
		return Reading{}, ErrUninitialized
	}
	return bmp.execute(cmd)
}

// execute must be called with bmp.mu held.
func (bmp *BMP180) execute(cmd Command) (Reading, error) {
	ut, err := bmp.dev.AcquireRawTemperature()
	if err != nil {
		return Reading{}, classify(err)
	}
	temp, b5, err := bmp180.CompensateTemperature(ut, bmp.cal)
	if err != nil {
		return Reading{}, classify(err)
	}
	r := Reading{Temperature: temp}

	switch c := cmd.(type) {
	case ReadTemperatureCmd:
		r.Value = temp
	case TemperatureLevelCmd:
		r.Value = int32(bmp180.ClassifyTemperature(temp))
	case ReadPressureCmd:
		if r.Pressure, err = bmp.pressure(c.OSS, b5); err != nil {
			return Reading{}, err
		}
		r.OSS = c.OSS
		r.Value = r.Pressure
	case ReadAltitudeCmd:
		if r.Pressure, err = bmp.pressure(bmp180.UltraLowPower, b5); err != nil {
			return Reading{}, err
		}
		r.Value = bmp180.Altitude(r.Pressure)
	}
	return r, nil
}

func (bmp *BMP180) pressure(oss bmp180.OSS, b5 int32) (int32, error) {
	up, err := bmp.dev.AcquireRawPressure(oss)
	if err != nil {
		return 0, classify(err)
	}
	p, err := bmp180.CompensatePressure(up, oss, b5, bmp.cal)
	return p, classify(err)
}

// ReadTemperature returns the temperature in tenths of a degree C.
func (bmp *BMP180) ReadTemperature() (int32, error) {
	r, err := bmp.Execute(ReadTemperatureCmd{})
	return r.Value, err
}

// ReadPressure returns the pressure in Pa.
func (bmp *BMP180) ReadPressure(oss bmp180.OSS) (int32, error) {
	r, err := bmp.Execute(ReadPressureCmd{OSS: oss})
	return r.Value, err
}

// ReadAltitude returns the altitude in meters.
func (bmp *BMP180) ReadAltitude() (int32, error) {
	r, err := bmp.Execute(ReadAltitudeCmd{})
	return r.Value, err
}

// TemperatureLevel returns the current temperature class.
func (bmp *BMP180) TemperatureLevel() (bmp180.TempClass, error) {
	r, err := bmp.Execute(TemperatureLevelCmd{})
	return bmp180.TempClass(r.Value), err
}

// Temperature returns the current temperature in degrees C measured by the BMP180
func (bmp *BMP180) Temperature() (float64, error) {
	t, err := bmp.ReadTemperature()
	if err != nil {
		return 0, err
	}
	return float64(t) / 10, nil
}

// Pressure returns the current pressure in mbar measured by the BMP180
func (bmp *BMP180) Pressure() (float64, error) {
	r, err := bmp.Execute(ReadPressureCmd{OSS: bmp.currentOSS()})
	if err != nil {
		return 0, err
	}
	return float64(r.Pressure) / 100, nil
}

// Sense reads temperature and pressure in one exclusive section.
func (bmp *BMP180) Sense(e *physic.Env) error {
	r, err := bmp.Execute(ReadPressureCmd{OSS: bmp.currentOSS()})
	if err != nil {
		return err
	}
	SetEnv(e, r)
	return nil
}

// SetEnv copies a reading into a periph environment sample.
func SetEnv(e *physic.Env, r Reading) {
	e.Temperature = physic.Temperature(r.Temperature)*100*physic.MilliCelsius + physic.ZeroCelsius
	e.Pressure = physic.Pressure(r.Pressure) * physic.Pascal
}

func (bmp *BMP180) currentOSS() bmp180.OSS {
	bmp.mu.Lock()
	defer bmp.mu.Unlock()
	return bmp.oss
}

// Close ends the session. Later commands fail with ErrUninitialized until
// Attach succeeds again.
func (bmp *BMP180) Close() {
	bmp.mu.Lock()
	bmp.ready = false
	bmp.cal = bmp180.Calibration{}
	bmp.mu.Unlock()
}
