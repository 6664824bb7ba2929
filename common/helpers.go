package common

import (
	"fmt"
	"os"
	"os/user"
)

func IsRunningAsRoot() bool {
	usr, err := user.Current()
	return err == nil && usr.Username == "root"
}

// I2CDevicePath returns the device node of i2c bus n.
func I2CDevicePath(n byte) string {
	return fmt.Sprintf("/dev/i2c-%d", n)
}

// CheckI2CBus returns an error naming the device node if i2c bus n is not
// present, which usually means the i2c kernel module is not loaded.
func CheckI2CBus(n byte) error {
	path := I2CDevicePath(n)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("i2c bus %d unavailable: %w", n, err)
	}
	return nil
}
