package sensors

import (
	"errors"
	"fmt"

	"github.com/b3nn0/bmp180d/sensors/bmp180"
)

// Every failure returned by the dispatcher matches exactly one of these with
// errors.Is.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrBusFailure    = errors.New("bus failure")
	ErrUninitialized = errors.New("sensor not initialized")
)

// Wire codes for the errors above.
const (
	CodeOK            = "ok"
	CodeInvalidInput  = "invalid_input"
	CodeBusFailure    = "bus_failure"
	CodeUninitialized = "uninitialized"
	CodeError         = "error"
)

// Code maps err onto a short, stable identifier for clients.
func Code(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrBusFailure):
		return CodeBusFailure
	case errors.Is(err, ErrUninitialized):
		return CodeUninitialized
	}
	return CodeError
}

// classify attaches the taxonomy to a driver error while keeping the cause.
func classify(err error) error {
	var be *bmp180.BusError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bmp180.ErrInvalidOSS):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.As(err, &be), errors.Is(err, bmp180.ErrNotConnected), errors.Is(err, bmp180.ErrImplausibleReading):
		return fmt.Errorf("%w: %w", ErrBusFailure, err)
	}
	return err
}
