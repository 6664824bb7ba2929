/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	bmp180d.go: service entry point. Reads a BMP180 over i2c and serves its
	temperature, pressure, altitude and temperature level.
*/

package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/b3nn0/bmp180d/common"
	"github.com/kidoman/embd"
	"github.com/takama/daemon"
)

const (
	// name of the service
	name        = "bmp180d"
	description = "BMP180 barometric pressure and temperature sensor daemon"
)

var bmp180dBuild string
var bmp180dVersion string

var stdlog, errlog *log.Logger

var errNotRoot = errors.New("must be run as root")

// Service has embedded daemon
type Service struct {
	daemon.Daemon
}

// Manage by daemon commands or run the daemon
func (service *Service) Manage() (string, error) {
	configFile := flag.String("config", defaultConfigLocation, "Settings file")
	bus := flag.Int("bus", -1, "I2C bus number, overrides the settings file")
	addr := flag.Int("addr", -1, "I2C address of the sensor, overrides the settings file")
	listen := flag.String("listen", "", "Management interface address, overrides the settings file")
	oss := flag.Int("oss", -1, "Oversampling setting 0..3 for background readings")
	debug := flag.Bool("debug", false, "Verbose logging")
	replay := flag.String("replay", "", "Replay a recorded bus trace instead of using the i2c bus")
	trace := flag.Bool("trace", false, "Record all bus transactions")
	flag.Parse()

	usage := "Usage: " + name + " install | remove | start | stop | status"
	// if received any kind of command, do it
	if flag.NArg() > 0 {
		command := flag.Arg(0)
		switch command {
		case "install", "remove":
			if !common.IsRunningAsRoot() {
				return "", errNotRoot
			}
			if command == "install" {
				return service.Install(os.Args[1 : flag.NFlag()+1]...)
			}
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	configLocation = *configFile
	readSettings()
	cfg, err := updateSettings(func(s *settings) error {
		if *bus >= 0 {
			s.I2CBus = byte(*bus)
		}
		if *addr >= 0 {
			s.I2CAddress = byte(*addr)
		}
		if *listen != "" {
			s.ManagementAddr = *listen
		}
		if *oss >= 0 {
			s.OSS = *oss
		}
		if *debug {
			s.DEBUG = true
		}
		if *replay != "" {
			s.ReplayFile = *replay
		}
		if *trace {
			s.TraceLog = true
		}
		return s.validate()
	})
	if err != nil {
		return "", err
	}

	initLogging()
	log.Printf("bmp180d %s (%s) starting.\n", bmp180dVersion, bmp180dBuild)
	statusMutex.Lock()
	globalStatus.Version = bmp180dVersion
	globalStatus.Build = bmp180dBuild
	statusMutex.Unlock()

	if cfg.ReplayFile == "" {
		if err := common.CheckI2CBus(cfg.I2CBus); err != nil {
			return "", err
		}
	}
	if err := initI2CSensors(); err != nil {
		return "", err
	}
	defer embd.CloseI2C()

	go common.CpuTempMonitor(func(cpuTemp float32) {
		if common.IsCPUTempValid(cpuTemp) {
			statusMutex.Lock()
			globalStatus.CPUTemp = cpuTemp
			statusMutex.Unlock()
		}
	})
	go updateStats()
	go traceLoggerWatchdog()
	go managementInterface()

	// Set up channel on which to send signal notifications.
	// We must use a buffered channel or risk missing the signal
	// if we're not ready to receive when the signal is sent.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	// interrupt by system signal
	for {
		killSignal := <-interrupt
		log.Println("Got signal:", killSignal)
		if killSignal == syscall.SIGUSR1 {
			readSettings()
			requestReconnect()
			continue
		}
		TraceLog.Stop()
		if bmp := currentSensor(); bmp != nil {
			bmp.Close()
		}
		if killSignal == syscall.SIGINT {
			return "Daemon was interrupted by system signal", nil
		}
		return "Daemon was killed", nil
	}
}

func init() {
	stdlog = log.New(os.Stdout, "", 0)
	errlog = log.New(os.Stderr, "", 0)
}

func main() {
	srv, err := daemon.New(name, description, daemon.SystemDaemon)
	if err != nil {
		errlog.Println("Error: ", err)
		os.Exit(1)
	}
	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		errlog.Println(status, "\nError: ", err)
		os.Exit(1)
	}
	stdlog.Println(status)
}
