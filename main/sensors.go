/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	sensors.go: attach the BMP180, keep it attached and take background readings.
*/

package main

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/b3nn0/bmp180d/sensors"
	"github.com/b3nn0/bmp180d/sensors/bmp180"
	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
	"periph.io/x/conn/v3/physic"
)

const numRetries uint8 = 5

var (
	i2cbus    bmp180.Bus
	myBMP180  *sensors.BMP180
	sensorMu  sync.RWMutex // guards myBMP180
	reconnect = make(chan bool, 1)
)

func initI2CSensors() error {
	cfg := getSettings()
	if cfg.ReplayFile != "" {
		bus, err := newReplayBus(cfg.ReplayFile)
		if err != nil {
			return err
		}
		log.Printf("BMP180 Info: replaying bus trace %s\n", cfg.ReplayFile)
		i2cbus = bus
	} else {
		if err := embd.InitI2C(); err != nil {
			return err
		}
		i2cbus = &tracingBus{Bus: embd.NewI2CBus(cfg.I2CBus)}
	}

	go pollSensors()
	return nil
}

func currentSensor() *sensors.BMP180 {
	sensorMu.RLock()
	defer sensorMu.RUnlock()
	return myBMP180
}

func setSensor(bmp *sensors.BMP180) {
	sensorMu.Lock()
	myBMP180 = bmp
	sensorMu.Unlock()

	statusMutex.Lock()
	globalStatus.BMPConnected = bmp != nil
	globalStatus.Calibration = nil
	if bmp != nil {
		if cal, err := bmp.Calibration(); err == nil {
			globalStatus.Calibration = &cal
		}
	}
	statusMutex.Unlock()
	setConnected(bmp != nil)
}

func pollSensors() {
	timer := time.NewTicker(4 * time.Second)
	for {
		// If it's not currently connected, try connecting to pressure sensor
		if currentSensor() == nil {
			log.Println("BMP180 Info: attempting pressure sensor connection.")
			if initPressureSensor() {
				go baroSampler()
			}
		}

		select {
		case <-timer.C:
		case <-reconnect:
			if bmp := currentSensor(); bmp != nil {
				setSensor(nil)
				bmp.Close()
			}
		}
	}
}

func initPressureSensor() (ok bool) {
	cfg := getSettings()
	bmp, err := sensors.NewBMP180(i2cbus, cfg.I2CAddress)
	if err != nil {
		log.Printf("BMP180 Info: couldn't initialize BMP180: %s\n", err)
		return false
	}
	if err = bmp.SetOSS(bmp180.OSS(cfg.OSS)); err != nil {
		log.Printf("BMP180 Error: %s\n", err)
	}
	setSensor(bmp)
	log.Printf("BMP180 Info: Successfully initialized BMP180 at 0x%02X\n", cfg.I2CAddress)
	logReading(bmp)
	return true
}

// logReading logs one temperature and pressure sample from p.
func logReading(p sensors.PressureReader) {
	temp, err := p.Temperature()
	if err != nil {
		log.Printf("BMP180 Error: %s\n", err)
		return
	}
	press, err := p.Pressure()
	if err != nil {
		log.Printf("BMP180 Error: %s\n", err)
		return
	}
	log.Printf("BMP180 Info: %.1f C, %.2f mbar\n", temp, press)
}

// requestReconnect drops the current session; pollSensors attaches a new one.
func requestReconnect() {
	select {
	case reconnect <- true:
	default:
	}
}

// baroSampler reads pressure periodically so the status and metrics stay
// current. It gives up on the session after numRetries consecutive bus
// failures.
func baroSampler() {
	var failnum uint8
	bmp := currentSensor()

	for currentSensor() == bmp && bmp != nil {
		cfg := getSettings()
		interval := cfg.PollInterval
		if interval <= 0 {
			time.Sleep(time.Second)
			continue
		}
		time.Sleep(time.Duration(interval) * time.Millisecond)

		_, err := execute(sensors.ReadPressureCmd{OSS: bmp180.OSS(cfg.OSS)})
		switch {
		case err == nil:
			failnum = 0
		case errors.Is(err, sensors.ErrBusFailure):
			failnum++
			log.Printf("BMP180 Error: Couldn't read pressure from sensor: %s", err)
			if failnum > numRetries {
				log.Printf("BMP180 Error: Couldn't read pressure from sensor %d times, closing BMP180: %s", failnum, err)
				if currentSensor() == bmp {
					setSensor(nil)
				}
				bmp.Close()
				return
			}
		default:
			log.Printf("BMP180 Error: %s", err)
		}
	}
}

// execute runs cmd against the attached sensor and records the outcome in
// the status and the metrics.
func execute(cmd sensors.Command) (sensors.Reading, error) {
	start := time.Now()
	bmp := currentSensor()

	var (
		r   sensors.Reading
		err error
	)
	if bmp == nil {
		err = sensors.ErrUninitialized
	} else {
		r, err = bmp.Execute(cmd)
	}
	took := time.Since(start)

	observeCommand(cmd, r, err, took)
	updateStatus(cmd, r, err)
	logDbg("BMP180 Debug: %s -> %+v (%s, %s)\n", cmd, r, sensors.Code(err), took)
	return r, err
}

func updateStatus(cmd sensors.Command, r sensors.Reading, err error) {
	statusMutex.Lock()
	defer statusMutex.Unlock()

	globalStatus.Commands++
	if err != nil {
		globalStatus.Errors++
		globalStatus.LastError = err.Error()
		return
	}

	var env physic.Env
	sensors.SetEnv(&env, r)
	globalStatus.Temperature = r.Temperature
	globalStatus.TemperatureStr = env.Temperature.String()
	globalStatus.TemperatureLevel = bmp180.ClassifyTemperature(r.Temperature).String()
	if r.Pressure != 0 {
		globalStatus.Pressure = r.Pressure
		globalStatus.PressureStr = env.Pressure.String()
		globalStatus.Altitude = bmp180.Altitude(r.Pressure)
		globalStatus.OSS = int(r.OSS)
	}
	globalStatus.LastReading = bmp180dClock.Now()
}
