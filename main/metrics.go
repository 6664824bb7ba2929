/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	metrics.go: Prometheus metrics for sensor commands and the latest reading.
*/

package main

import (
	"time"

	"github.com/b3nn0/bmp180d/sensors"
	"github.com/b3nn0/bmp180d/sensors/bmp180"
	"github.com/prometheus/client_golang/prometheus"
)

// Initialize Prometheus metrics.
var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bmp180_commands_total",
			Help: "Sensor commands executed, by command and result code.",
		},
		[]string{"command", "code"},
	)

	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "bmp180_command_duration_seconds",
			Help: "Time from request to answer, including waiting for the sensor lock and conversions.",
			// conversions alone take 5ms (temperature) to 31ms (temperature + oss 3 pressure)
			Buckets: []float64{.005, .01, .015, .02, .03, .05, .1, .25, 1},
		},
		[]string{"command"},
	)

	currentTemp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bmp180_temperature_celsius",
		Help: "Last measured temperature.",
	})

	currentPressure = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bmp180_pressure_pascals",
		Help: "Last measured pressure.",
	})

	currentAltitude = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bmp180_altitude_meters",
		Help: "Altitude derived from the last measured pressure.",
	})

	sensorConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bmp180_connected",
		Help: "1 while a calibrated sensor session is attached.",
	})

	totalUptime = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bmp180d_uptime_seconds_total",
			Help: "Total uptime.",
		},
		[]string{"all"},
	)
)

var metricsRegistry = prometheus.NewRegistry()

func init() {
	metricsRegistry.MustRegister(commandsTotal)
	metricsRegistry.MustRegister(commandDuration)
	metricsRegistry.MustRegister(currentTemp)
	metricsRegistry.MustRegister(currentPressure)
	metricsRegistry.MustRegister(currentAltitude)
	metricsRegistry.MustRegister(sensorConnected)
	metricsRegistry.MustRegister(totalUptime)
}

func updateStats() {
	updateTicker := time.NewTicker(1 * time.Second)
	for {
		<-updateTicker.C
		totalUptime.With(prometheus.Labels{"all": "all"}).Inc()
	}
}

func observeCommand(cmd sensors.Command, r sensors.Reading, err error, took time.Duration) {
	commandsTotal.WithLabelValues(cmd.String(), sensors.Code(err)).Inc()
	commandDuration.WithLabelValues(cmd.String()).Observe(took.Seconds())
	if err != nil {
		return
	}
	currentTemp.Set(float64(r.Temperature) / 10)
	if r.Pressure != 0 {
		currentPressure.Set(float64(r.Pressure))
		currentAltitude.Set(float64(bmp180.Altitude(r.Pressure)))
	}
}

func setConnected(ok bool) {
	if ok {
		sensorConnected.Set(1)
	} else {
		sensorConnected.Set(0)
	}
}
