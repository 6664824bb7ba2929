package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/b3nn0/bmp180d/sensors"
	"github.com/b3nn0/bmp180d/sensors/bmp180"
)

func TestTraceRecordAndReplay(t *testing.T) {
	dir := t.TempDir()
	if err := TraceLog.Start(dir); err != nil {
		t.Fatal(err)
	}
	bmp, err := sensors.NewBMP180(&tracingBus{Bus: newEmulatedBMP180()}, 0)
	if err != nil {
		TraceLog.Stop()
		t.Fatal(err)
	}
	if _, err := bmp.ReadPressure(bmp180.UltraLowPower); err != nil {
		TraceLog.Stop()
		t.Fatal(err)
	}
	TraceLog.Stop()

	files, _ := filepath.Glob(filepath.Join(dir, "*_trace.csv.gz"))
	if len(files) != 1 {
		t.Fatalf("trace files: %v", files)
	}
	bus, err := newReplayBus(files[0])
	if err != nil {
		t.Fatal(err)
	}

	replayed, err := sensors.NewBMP180(bus, 0)
	if err != nil {
		t.Fatalf("attach on replay: %v", err)
	}
	// The trace holds one pressure cycle; replay repeats it.
	for i := 0; i < 3; i++ {
		p, err := replayed.ReadPressure(bmp180.UltraLowPower)
		if err != nil || p != 69964 {
			t.Fatalf("replayed pressure #%d = %d, %v", i, p, err)
		}
	}
	if temp, err := replayed.ReadTemperature(); err != nil || temp != 150 {
		t.Errorf("replayed temperature = %d, %v", temp, err)
	}

	// A conversion that never ran in the recording has nothing to replay.
	_, err = replayed.ReadPressure(bmp180.UltraHighRes)
	if !errors.Is(err, errNoTraceData) || !errors.Is(err, sensors.ErrBusFailure) {
		t.Errorf("unrecorded conversion: %v", err)
	}
}

func TestTraceRecordsOnlyWhileActive(t *testing.T) {
	TraceLog.Stop()
	bus := &tracingBus{Bus: newEmulatedBMP180()}
	if _, err := bus.ReadByteFromReg(bmp180.Address, bmp180.RegChipId); err != nil {
		t.Fatal(err)
	}
	if TraceLog.IsActive() {
		t.Fatal("trace active without Start")
	}
}

func TestLoadReplayErrors(t *testing.T) {
	tests := []struct {
		name  string
		trace string
	}{
		{"context", "ts,x,119,208,85,\n"},
		{"value", "ts,r,119,208,300,\n"},
		{"fields", "ts,r,119,208\n"},
	}
	for _, tt := range tests {
		if _, err := loadReplay(strings.NewReader(tt.trace)); err == nil {
			t.Errorf("%s: bad trace accepted", tt.name)
		}
	}
}

func TestReplayRecordedError(t *testing.T) {
	bus, err := loadReplay(strings.NewReader("ts,r,119,208,0,i2c: nack\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bus.ReadByteFromReg(119, bmp180.RegChipId); err == nil || err.Error() != "i2c: nack" {
		t.Errorf("recorded error not replayed: %v", err)
	}
	if _, err := sensors.NewBMP180(bus, 0); !errors.Is(err, sensors.ErrBusFailure) {
		t.Errorf("attach on a failing trace: %v", err)
	}
}
