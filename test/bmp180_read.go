// bmp180_read: poll a running bmp180d over its /control websocket and print
// every reading the daemon offers.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/net/websocket"
)

type request struct {
	ID      int    `json:"id"`
	Command string `json:"cmd"`
	OSS     int    `json:"oss"`
}

type response struct {
	ID    int    `json:"id"`
	Cmd   string `json:"cmd"`
	Value int32  `json:"value"`
	Level string `json:"level"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

var id int

func query(ws *websocket.Conn, cmd string, oss int) (response, error) {
	id++
	var resp response
	if err := websocket.JSON.Send(ws, request{ID: id, Command: cmd, OSS: oss}); err != nil {
		return resp, err
	}
	if err := websocket.JSON.Receive(ws, &resp); err != nil {
		return resp, err
	}
	if resp.Code != "ok" {
		return resp, fmt.Errorf("%s: %s (%s)", cmd, resp.Error, resp.Code)
	}
	return resp, nil
}

func main() {
	addr := flag.String("addr", "localhost:9180", "bmp180d management address")
	oss := flag.Int("oss", 0, "Oversampling setting for pressure readings")
	interval := flag.Duration("interval", 2*time.Second, "Time between readings")
	flag.Parse()

	ws, err := websocket.Dial("ws://"+*addr+"/control", "", "http://"+*addr+"/")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to bmp180d: %s\n", err.Error())
		os.Exit(1)
	}

	for {
		r, err := query(ws, "read_temperature", 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read temperature: %s\n", err.Error())
			break
		}
		fmt.Printf("Temperature: %.1f °C\n", float64(r.Value)/10)

		if r, err = query(ws, "get_temperature_level", 0); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to get temperature level: %s\n", err.Error())
			break
		}
		fmt.Printf("Temperature level: %s\n", r.Level)

		if r, err = query(ws, "read_pressure", *oss); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read pressure: %s\n", err.Error())
			break
		}
		fmt.Printf("Pressure: %.2f Pa\n", float64(r.Value))

		if r, err = query(ws, "read_altitude", 0); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read altitude: %s\n", err.Error())
			break
		}
		fmt.Printf("Altitude: %.2f m\n", float64(r.Value))

		fmt.Println("-------------------------------")
		time.Sleep(*interval)
	}
	ws.Close()
	os.Exit(1)
}
