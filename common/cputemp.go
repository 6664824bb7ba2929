package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const InvalidCpuTemp = float32(-99.0)

var thermalZone = "/sys/class/thermal/thermal_zone0/temp"

type CpuTempUpdateFunc func(cpuTemp float32)

// ParseCpuTemp converts the contents of a thermal zone file to degrees C.
// Kernels report millidegrees; some report whole degrees.
func ParseCpuTemp(s string) float32 {
	tInt, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return InvalidCpuTemp
	}
	if tInt > 1000 {
		return float32(tInt) / float32(1000.0)
	}
	return float32(tInt)
}

/* CpuTempMonitor() reads the board temperature every second and calls a
callback. It runs as its own goroutine because reading the thermal zone
can hang for quite some time on the RPi. */

func CpuTempMonitor(updater CpuTempUpdateFunc) {
	timer := time.NewTicker(1 * time.Second)
	for {
		t := InvalidCpuTemp
		if temp, err := os.ReadFile(thermalZone); err == nil {
			t = ParseCpuTemp(string(temp))
		}
		if t > InvalidCpuTemp { // Only update if valid value was obtained.
			updater(t)
		}
		<-timer.C
	}
}

// Check if CPU temperature is valid. Assume <= 0 is invalid.
func IsCPUTempValid(cpuTemp float32) bool {
	return cpuTemp > 0
}
