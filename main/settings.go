/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	settings.go: bmp180d configuration file and shared daemon status.
*/

package main

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/b3nn0/bmp180d/sensors/bmp180"
)

const (
	defaultConfigLocation = "/etc/bmp180d.conf"
	defaultManagementAddr = ":9180"
	defaultPollInterval   = 1000 // ms
)

var (
	configLocation = defaultConfigLocation
	logDirf        = "/var/log/bmp180d"
	traceDirf      = "/var/log/bmp180d/trace"
)

type settings struct {
	I2CBus         byte   // /dev/i2c-N
	I2CAddress     byte   // 0 selects the sensor's default 0x77
	OSS            int    // oversampling used by the background reader
	PollInterval   int    // ms between background readings, 0 disables them
	ManagementAddr string // HTTP/websocket listen address
	DEBUG          bool
	TraceLog       bool   // record every register transaction to traceDirf
	ReplayFile     string // Startup only option: serve the bus from a recorded trace instead of hardware.
}

type status struct {
	Version          string
	Build            string
	BMPConnected     bool
	Calibration      *bmp180.Calibration
	Temperature      int32 // tenths of a degree C
	TemperatureStr   string
	TemperatureLevel string
	Pressure         int32 // Pa
	PressureStr      string
	Altitude         int32 // m
	OSS              int
	LastReading      time.Time
	LastReadingAge   string
	Commands         uint64
	Errors           uint64
	LastError        string
	Uptime           int64
	UptimeStr        string
	CPUTemp          float32
}

var (
	globalSettings settings
	settingsMutex  sync.RWMutex // guards globalSettings
	globalStatus   status
	statusMutex    sync.Mutex
)

var errSettingsOSS = errors.New("settings: OSS must be 0..3")

func defaultSettings() settings {
	return settings{
		I2CBus:         1,
		I2CAddress:     bmp180.Address,
		OSS:            int(bmp180.Standard),
		PollInterval:   defaultPollInterval,
		ManagementAddr: defaultManagementAddr,
	}
}

// getSettings returns a snapshot of the current settings.
func getSettings() settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return globalSettings
}

// storeSettings replaces the current settings.
func storeSettings(s settings) {
	settingsMutex.Lock()
	globalSettings = s
	settingsMutex.Unlock()
}

// updateSettings applies fn to a copy of the settings and keeps the copy if
// fn succeeds. fn runs with the lock held, so concurrent updates (and any
// saveSettings inside fn) are serialised.
func updateSettings(fn func(s *settings) error) (settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	newSettings := globalSettings
	if err := fn(&newSettings); err != nil {
		return globalSettings, err
	}
	globalSettings = newSettings
	return newSettings, nil
}

func (s *settings) validate() error {
	if s.OSS < 0 || s.OSS > int(bmp180.UltraHighRes) {
		return errSettingsOSS
	}
	if s.PollInterval < 0 {
		s.PollInterval = 0
	}
	if s.ManagementAddr == "" {
		s.ManagementAddr = defaultManagementAddr
	}
	return nil
}

func readSettings() {
	buf, err := os.ReadFile(configLocation)
	if err != nil {
		log.Printf("can't read settings %s: %s\n", configLocation, err.Error())
		storeSettings(defaultSettings())
		return
	}
	newSettings := defaultSettings()
	if err = json.Unmarshal(buf, &newSettings); err == nil {
		err = newSettings.validate()
	}
	if err != nil {
		log.Printf("can't read settings %s: %s\n", configLocation, err.Error())
		storeSettings(defaultSettings())
		return
	}
	storeSettings(newSettings)
	log.Printf("read in settings.\n")
}

func saveSettings(s settings) error {
	jsonSettings, err := json.MarshalIndent(&s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(configLocation, jsonSettings, os.FileMode(0644)); err != nil {
		log.Printf("can't save settings %s: %s\n", configLocation, err.Error())
		return err
	}
	log.Printf("wrote settings.\n")
	return nil
}
