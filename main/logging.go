/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	logging.go: Initialize go logging, watch log file size and rotate, delete old logs
*/

package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ricochet2200/go-disk-usage/du"
	"golang.org/x/exp/slices"
)

const (
	debugLogFile  = "bmp180d.log"
	maxLogSize    = 10 * 1024 * 1024 // rotate at 10mb
	maxLogFiles   = 9
	minFreeLogDir = 50 * 1024 * 1024 // leave 50mb free
)

var debugLogf string // Set according to logDirf.
var logFileHandle *os.File

// getLogFiles returns the rotated logs, newest first.
func getLogFiles() []string {
	entries, err := os.ReadDir(logDirf)
	logs := make([]string, 0)
	if err != nil {
		return logs
	}

	nums := make([]int, 0)
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), debugLogFile+".") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), debugLogFile+"."))
		if err == nil {
			nums = append(nums, n)
		}
	}
	slices.Sort(nums)
	for _, n := range nums {
		logs = append(logs, filepath.Join(logDirf, debugLogFile+"."+strconv.Itoa(n)))
	}
	return logs
}

func rotateLogs() {
	logs := getLogFiles()

	// rename suffix, remove if > maxLogFiles
	for i := len(logs) - 1; i >= 0; i-- {
		parts := strings.Split(logs[i], ".")
		logNum, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			continue
		}

		if logNum >= maxLogFiles {
			os.Remove(logs[i])
		} else {
			os.Rename(logs[i], filepath.Join(logDirf, debugLogFile+"."+strconv.Itoa(logNum+1)))
		}
	}

	// Now rename current log file and re-open
	os.Rename(debugLogf, debugLogf+".1")
	openLogFile()
}

func deleteOldestLog() int64 {
	logs := getLogFiles()
	if len(logs) == 0 {
		return 0
	}
	oldest := logs[len(logs)-1]
	stat, err := os.Stat(oldest)
	if err != nil {
		return 0
	}
	if err = os.Remove(oldest); err != nil {
		return 0
	}
	return stat.Size()
}

func logFileWatcher() {
	for {
		logSize, err := os.Stat(debugLogf)
		if err == nil && logSize.Size() > maxLogSize {
			rotateLogs()
		}

		usage := du.NewDiskUsage(logDirf)
		freeBytes := int64(usage.Free())
		for freeBytes < minFreeLogDir {
			deleted := deleteOldestLog()
			if deleted == 0 {
				break
			}
			freeBytes += deleted
		}

		time.Sleep(30 * time.Second)
	}
}

func openLogFile() {
	oldFp := logFileHandle
	os.MkdirAll(logDirf, os.ModePerm)
	debugLogf = filepath.Join(logDirf, debugLogFile)
	fp, err := os.OpenFile(debugLogf, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open '%s': %s\n", debugLogf, err.Error())
	} else {
		// Keep the logfile handle for later use
		logFileHandle = fp
		mfp := io.MultiWriter(fp, os.Stdout)
		log.SetOutput(mfp)

		// Make sure crash dumps are written to the log as well
		syscall.Dup3(int(fp.Fd()), 2, 0)
	}
	if oldFp != nil {
		oldFp.Close()
	}
}

func initLogging() {
	openLogFile()
	go logFileWatcher()
}

func logDbg(msg string, args ...any) {
	if getSettings().DEBUG {
		log.Printf(msg, args...)
	}
}
