// Distributable under the terms of The "BSD New" License
// that can be found in the LICENSE file, herein included
// as part of this header.
// trace.go: record all register transactions with the sensor for future replay

package main

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/b3nn0/bmp180d/sensors/bmp180"
	"github.com/ricochet2200/go-disk-usage/du"
	"golang.org/x/exp/slices"
)

type TraceLogger struct {
	fileHandle *os.File
	gzWriter   *gzip.Writer
	csvWriter  *csv.Writer
	fileName   string
	traceMutex sync.Mutex
}

const (
	CONTEXT_READ  = "r"
	CONTEXT_WRITE = "w"
)

var TraceLog TraceLogger

// Record appends one register transaction. errMsg is empty for a transaction
// that completed.
func (tracer *TraceLogger) Record(context string, addr, reg, value byte, errMsg string) {
	tracer.traceMutex.Lock()
	defer tracer.traceMutex.Unlock()
	if tracer.fileHandle == nil {
		return
	}
	ts := bmp180dClock.Now().Format(time.RFC3339Nano)
	tracer.csvWriter.Write([]string{ts, context,
		strconv.Itoa(int(addr)), strconv.Itoa(int(reg)), strconv.Itoa(int(value)), errMsg})
}

func (tracer *TraceLogger) Flush() {
	tracer.traceMutex.Lock()
	defer tracer.traceMutex.Unlock()
	if tracer.fileHandle != nil {
		tracer.csvWriter.Flush()
		tracer.gzWriter.Flush()
		tracer.fileHandle.Sync()
	}
}

func (tracer *TraceLogger) Start(dir string) error {
	tracer.traceMutex.Lock()
	defer tracer.traceMutex.Unlock()
	ts := time.Now().UTC().Format(time.RFC3339)
	os.MkdirAll(dir, os.ModePerm)
	fname := filepath.Join(dir, ts+"_trace.csv.gz")

	fileHandle, err := os.OpenFile(fname, os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Printf("Failed to open trace log file: %s", err.Error())
		return err
	}
	tracer.gzWriter = gzip.NewWriter(fileHandle)
	tracer.csvWriter = csv.NewWriter(tracer.gzWriter)
	tracer.fileHandle = fileHandle
	tracer.fileName = fname
	return nil
}

func (tracer *TraceLogger) Stop() {
	tracer.traceMutex.Lock()
	defer tracer.traceMutex.Unlock()
	if tracer.fileHandle == nil {
		return
	}
	tracer.csvWriter.Flush()
	tracer.gzWriter.Close()
	tracer.fileHandle.Close()
	tracer.fileHandle = nil
	tracer.csvWriter = nil
	tracer.gzWriter = nil
}

func (tracer *TraceLogger) IsActive() bool {
	tracer.traceMutex.Lock()
	defer tracer.traceMutex.Unlock()
	return tracer.fileHandle != nil
}

func traceLoggerWatchdog() {
	for {
		if TraceLog.IsActive() {
			usage := du.NewDiskUsage(traceDirf)
			if usage.Free() < 1024*1024*50 {
				// less than 50mb free? deactivate
				log.Printf("Space running out - disable trace logging for this run")
				TraceLog.Stop()
				break
			}
		}

		enabled := getSettings().TraceLog
		if TraceLog.IsActive() && !enabled {
			TraceLog.Stop()
		} else if !TraceLog.IsActive() && enabled {
			TraceLog.Start(traceDirf)
		}
		time.Sleep(1 * time.Second)
		TraceLog.Flush()
	}
}

// tracingBus records every transaction on the wrapped bus while tracing is on.
type tracingBus struct {
	bmp180.Bus
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (t *tracingBus) ReadByteFromReg(addr, reg byte) (byte, error) {
	v, err := t.Bus.ReadByteFromReg(addr, reg)
	TraceLog.Record(CONTEXT_READ, addr, reg, v, errString(err))
	return v, err
}

func (t *tracingBus) WriteByteToReg(addr, reg, value byte) error {
	err := t.Bus.WriteByteToReg(addr, reg, value)
	TraceLog.Record(CONTEXT_WRITE, addr, reg, value, errString(err))
	return err
}

type traceRead struct {
	value byte
	err   error
}

// replayBus answers register reads from a recorded trace. Reads of a register
// return its recorded values in order and start over when they run out, so a
// short trace can feed the daemon indefinitely. Reads of the result registers
// are keyed by the conversion command written before them. Writes only select
// that command.
type replayBus struct {
	mu      sync.Mutex
	reads   map[replayKey][]traceRead
	next    map[replayKey]int
	control map[byte]byte // last conversion command per address
}

type replayKey struct {
	addr, reg, cmd byte
}

func keyFor(addr, reg byte, control map[byte]byte) replayKey {
	k := replayKey{addr: addr, reg: reg}
	if reg >= bmp180.RegResult && reg <= bmp180.RegResult+2 {
		k.cmd = control[addr]
	}
	return k
}

var errNoTraceData = errors.New("trace: no recorded reads for register")

func newReplayBus(fname string) (*replayBus, error) {
	fhandle, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fhandle.Close()
	gzReader, err := gzip.NewReader(fhandle)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream for file %s: %w", fname, err)
	}
	return loadReplay(gzReader)
}

func loadReplay(r io.Reader) (*replayBus, error) {
	bus := &replayBus{
		reads:   make(map[replayKey][]traceRead),
		next:    make(map[replayKey]int),
		control: make(map[byte]byte),
	}
	recorded := make(map[byte]byte)
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = 6
	line := 0
	for {
		fields, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", line, err)
		}
		if !slices.Contains([]string{CONTEXT_READ, CONTEXT_WRITE}, fields[1]) {
			return nil, fmt.Errorf("trace line %d: unknown context %q", line, fields[1])
		}
		var b [3]byte
		for i, f := range fields[2:5] {
			n, err := strconv.ParseUint(f, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("trace line %d: %w", line, err)
			}
			b[i] = byte(n)
		}
		if fields[1] == CONTEXT_WRITE {
			if b[1] == bmp180.RegControl && fields[5] == "" {
				recorded[b[0]] = b[2]
			}
			continue
		}
		rd := traceRead{value: b[2]}
		if fields[5] != "" {
			rd.err = errors.New(fields[5])
		}
		key := keyFor(b[0], b[1], recorded)
		bus.reads[key] = append(bus.reads[key], rd)
	}
	return bus, nil
}

func (b *replayBus) ReadByteFromReg(addr, reg byte) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := keyFor(addr, reg, b.control)
	recorded := b.reads[key]
	if len(recorded) == 0 {
		return 0, fmt.Errorf("%w 0x%02X/0x%02X", errNoTraceData, addr, reg)
	}
	rd := recorded[b.next[key]%len(recorded)]
	b.next[key]++
	return rd.value, rd.err
}

func (b *replayBus) WriteByteToReg(addr, reg, value byte) error {
	if reg == bmp180.RegControl {
		b.mu.Lock()
		b.control[addr] = value
		b.mu.Unlock()
	}
	return nil
}
