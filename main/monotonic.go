/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	monotonic.go: Create monotonic clock using time.Timer - necessary because of real time clock changes on RPi.
*/

package main

import (
	"strings"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
)

// Timer (since start).

type monotonic struct {
	mu           sync.Mutex
	Milliseconds uint64
	Time         time.Time
	ticker       *time.Ticker
}

func (m *monotonic) Watcher() {
	for {
		<-m.ticker.C
		m.mu.Lock()
		m.Milliseconds += 10
		m.Time = m.Time.Add(10 * time.Millisecond)
		m.mu.Unlock()
	}
}

func (m *monotonic) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Time
}

func (m *monotonic) Since(t time.Time) time.Duration {
	return m.Now().Sub(t)
}

func (m *monotonic) HumanizeTime(t time.Time) string {
	return humanize.RelTime(t, m.Now(), "ago", "from now")
}

func (m *monotonic) Uptime() string {
	return strings.TrimSpace(humanize.RelTime(time.Time{}, m.Now(), "", ""))
}

func (m *monotonic) Unix() int64 {
	return int64(m.Since(time.Time{}).Seconds())
}

func NewMonotonic() *monotonic {
	t := &monotonic{Milliseconds: 0, Time: time.Time{}, ticker: time.NewTicker(10 * time.Millisecond)}
	go t.Watcher()
	return t
}

var bmp180dClock = NewMonotonic()
