//go:build !linux

package hal

import "errors"

var errGpioUnsupported = errors.New("gpio character devices require linux")

func openGpiodPin(string, int) (FanPin, error) {
	return nil, errGpioUnsupported
}

func openGpiocdevPin(string, int) (FanPin, error) {
	return nil, errGpioUnsupported
}
