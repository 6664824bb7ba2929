// Package sensors provides a daemon-facing interface to the barometric sensor.
package sensors

// PressureReader provides an interface to a sensor reading pressure and maybe
// temperature, like the BMP180.
type PressureReader interface {
	Temperature() (temp float64, tempError error) // Temperature returns the temperature in degrees C.
	Pressure() (press float64, pressError error)  // Pressure returns the atmospheric pressure in mBar.
	Close()                                       // Close stops reading from the sensor.
}
