/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	managementinterface.go: HTTP and websocket access to the sensor commands,
	status, settings and metrics.
*/

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/b3nn0/bmp180d/sensors"
	"github.com/b3nn0/bmp180d/sensors/bmp180"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"
)

// commandRequest is what clients send on /control.
type commandRequest struct {
	ID      int    `json:"id"`
	Command string `json:"cmd"` // a command name or its numeric code
	OSS     int    `json:"oss"`
}

type commandResponse struct {
	ID      int    `json:"id"`
	Command string `json:"cmd"`
	Value   int32  `json:"value"`
	Unit    string `json:"unit"`
	Level   string `json:"level,omitempty"`
	Code    string `json:"code"`
	Error   string `json:"error,omitempty"`
}

var units = map[string]string{
	sensors.ReadTemperatureCmd{}.String():  "0.1C",
	sensors.ReadPressureCmd{}.String():     "Pa",
	sensors.ReadAltitudeCmd{}.String():     "m",
	sensors.TemperatureLevelCmd{}.String(): "level",
}

// runCommand parses and executes one request. Parse errors are answered
// without touching the sensor.
func runCommand(req commandRequest) commandResponse {
	resp := commandResponse{ID: req.ID, Command: req.Command}
	cmd, err := sensors.ParseCommandName(req.Command, req.OSS)
	if err == nil {
		resp.Command = cmd.String()
		resp.Unit = units[resp.Command]
		var r sensors.Reading
		r, err = execute(cmd)
		if err == nil {
			resp.Value = r.Value
			if _, ok := cmd.(sensors.TemperatureLevelCmd); ok {
				resp.Level = bmp180.TempClass(r.Value).String()
			}
		}
	}
	resp.Code = sensors.Code(err)
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func httpStatus(code string) int {
	switch code {
	case sensors.CodeOK:
		return http.StatusOK
	case sensors.CodeInvalidInput:
		return http.StatusBadRequest
	case sensors.CodeUninitialized:
		return http.StatusServiceUnavailable
	case sensors.CodeBusFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	j, _ := json.Marshal(v)
	fmt.Fprintf(w, "%s\n", j)
}

// commandHandler serves one fixed command, or with cmd == "" the command
// named by the "cmd" query parameter. "oss" defaults to 0.
func commandHandler(cmd string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := commandRequest{Command: cmd}
		if req.Command == "" {
			req.Command = r.URL.Query().Get("cmd")
		}
		if s := r.URL.Query().Get("oss"); s != "" {
			oss, err := strconv.Atoi(s)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, commandResponse{Command: req.Command,
					Code: sensors.CodeInvalidInput, Error: "oss: " + err.Error()})
				return
			}
			req.OSS = oss
		}
		resp := runCommand(req)
		writeJSON(w, httpStatus(resp.Code), resp)
	}
}

// snapshotStatus returns a copy of the status with the derived fields filled in.
func snapshotStatus() status {
	statusMutex.Lock()
	s := globalStatus
	statusMutex.Unlock()
	s.Uptime = bmp180dClock.Unix()
	s.UptimeStr = bmp180dClock.Uptime()
	if !s.LastReading.IsZero() {
		s.LastReadingAge = bmp180dClock.HumanizeTime(s.LastReading)
	}
	return s
}

// AJAX call - /getStatus. Responds with the sensor state and the last reading.
func handleStatusRequest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, snapshotStatus())
}

// AJAX call - /getSettings. Responds with all bmp180d.conf data.
func handleSettingsGetRequest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, getSettings())
}

// AJAX call - /setSettings. Receives via POST any/all bmp180d.conf data.
// An address change reattaches the sensor; the bus number needs a restart.
func handleSettingsSetRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var reattach, saveFailed bool
	newSettings, err := updateSettings(func(s *settings) error {
		old := *s
		if err := json.Unmarshal(body, s); err != nil {
			return err
		}
		if err := s.validate(); err != nil {
			return err
		}
		s.ReplayFile = old.ReplayFile // startup only
		reattach = s.I2CAddress != old.I2CAddress
		if err := saveSettings(*s); err != nil {
			saveFailed = true
			return err
		}
		return nil
	})
	if err != nil {
		status := http.StatusBadRequest
		if saveFailed {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if bmp := currentSensor(); bmp != nil {
		if err := bmp.SetOSS(bmp180.OSS(newSettings.OSS)); err != nil {
			log.Printf("BMP180 Error: %s\n", err)
		}
	}
	if reattach {
		requestReconnect()
	}
	writeJSON(w, http.StatusOK, newSettings)
}

func statusSender(conn *websocket.Conn) {
	timer := time.NewTicker(1 * time.Second)
	defer timer.Stop()
	for {
		<-timer.C
		update, _ := json.Marshal(snapshotStatus())
		if _, err := conn.Write(update); err != nil {
			break
		}
	}
}

// handleControlConnection answers commandRequests, one response per request,
// in order.
func handleControlConnection(conn *websocket.Conn) {
	for {
		var req commandRequest
		err := websocket.JSON.Receive(conn, &req)
		if err == io.EOF {
			break
		} else if err != nil {
			log.Printf("handleControlConnection: %s\n", err.Error())
			resp := commandResponse{Code: sensors.CodeInvalidInput, Error: err.Error()}
			if websocket.JSON.Send(conn, resp) != nil {
				break
			}
			continue
		}
		if err := websocket.JSON.Send(conn, runCommand(req)); err != nil {
			break
		}
	}
}

func newManagementMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/control",
		func(w http.ResponseWriter, req *http.Request) {
			s := websocket.Server{
				Handler: websocket.Handler(handleControlConnection)}
			s.ServeHTTP(w, req)
		})
	mux.HandleFunc("/status",
		func(w http.ResponseWriter, req *http.Request) {
			s := websocket.Server{
				Handler: websocket.Handler(statusSender)}
			s.ServeHTTP(w, req)
		})

	mux.HandleFunc("/readTemperature", commandHandler(sensors.ReadTemperatureCmd{}.String()))
	mux.HandleFunc("/readPressure", commandHandler(sensors.ReadPressureCmd{}.String()))
	mux.HandleFunc("/readAltitude", commandHandler(sensors.ReadAltitudeCmd{}.String()))
	mux.HandleFunc("/getTemperatureLevel", commandHandler(sensors.TemperatureLevelCmd{}.String()))
	mux.HandleFunc("/command", commandHandler(""))
	mux.HandleFunc("/getStatus", handleStatusRequest)
	mux.HandleFunc("/getSettings", handleSettingsGetRequest)
	mux.HandleFunc("/setSettings", handleSettingsSetRequest)
	mux.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	return mux
}

func managementInterface() {
	err := http.ListenAndServe(getSettings().ManagementAddr, newManagementMux())
	if err != nil {
		log.Printf("managementInterface ListenAndServe: %s\n", err.Error())
	}
}
