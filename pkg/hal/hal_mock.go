package hal

import (
	"github.com/stretchr/testify/mock"
)

// fails if the mocks do not implement the hal interfaces
var (
	_ FanPin        = &FanPinMock{}
	_ Regulator     = &RegulatorMock{}
	_ ThermalSensor = &ThermalSensorMock{}
)

// FanPinMock implements a mock for the FanPin interface
type FanPinMock struct {
	mock.Mock
}

func (m *FanPinMock) Set(on bool) error {
	args := m.Called(on)
	return args.Error(0)
}

func (m *FanPinMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// RegulatorMock implements a mock for the Regulator interface
type RegulatorMock struct {
	mock.Mock
}

func (m *RegulatorMock) Voltage() (Microvolts, error) {
	args := m.Called()
	return args.Get(0).(Microvolts), args.Error(1)
}

func (m *RegulatorMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ThermalSensorMock implements a mock for the ThermalSensor interface
type ThermalSensorMock struct {
	mock.Mock
}

func (m *ThermalSensorMock) Temperature(domain int, voltage Microvolts) Temperature {
	args := m.Called(domain, voltage)
	return args.Get(0).(Temperature)
}
