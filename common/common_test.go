package common

import (
	"strings"
	"testing"
)

func TestParseCpuTemp(t *testing.T) {
	tests := []struct {
		in   string
		want float32
	}{
		{"48312\n", 48.312},
		{"52", 52},
		{"", InvalidCpuTemp},
		{"hot", InvalidCpuTemp},
	}
	for _, tt := range tests {
		if got := ParseCpuTemp(tt.in); got != tt.want {
			t.Errorf("ParseCpuTemp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if IsCPUTempValid(InvalidCpuTemp) || !IsCPUTempValid(48.3) {
		t.Error("IsCPUTempValid disagrees")
	}
}

func TestCheckI2CBus(t *testing.T) {
	if I2CDevicePath(1) != "/dev/i2c-1" {
		t.Errorf("unexpected path %s", I2CDevicePath(1))
	}
	err := CheckI2CBus(250)
	if err == nil || !strings.Contains(err.Error(), "i2c bus 250") {
		t.Errorf("expected missing bus error, got %v", err)
	}
}
