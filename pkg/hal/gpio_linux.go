//go:build linux

package hal

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"github.com/warthog618/gpiod"
)

type gpiodPin struct {
	chip *gpiod.Chip
	line *gpiod.Line
}

func openGpiodPin(chipName string, offset int) (FanPin, error) {
	chip, err := gpiod.NewChip(chipName, gpiod.WithConsumer(consumerName))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	// Request as output, starting with the fan off
	line, err := chip.RequestLine(offset, gpiod.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request line: %w", err)
	}
	fanPinLevel.Set(0)
	return &gpiodPin{chip: chip, line: line}, nil
}

func (p *gpiodPin) Set(on bool) error {
	v := pinValue(on)
	fanPinLevel.Set(float64(v))
	return p.line.SetValue(v)
}

// Close turns the fan off before releasing the line
func (p *gpiodPin) Close() error {
	return errors.Join(
		p.line.SetValue(0),
		p.line.Close(),
		p.chip.Close(),
	)
}

type gpiocdevPin struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func openGpiocdevPin(chipName string, offset int) (FanPin, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumerName))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request line: %w", err)
	}
	fanPinLevel.Set(0)
	return &gpiocdevPin{chip: chip, line: line}, nil
}

func (p *gpiocdevPin) Set(on bool) error {
	v := pinValue(on)
	fanPinLevel.Set(float64(v))
	return p.line.SetValue(v)
}

// Close turns the fan off before releasing the line
func (p *gpiocdevPin) Close() error {
	return errors.Join(
		p.line.SetValue(0),
		p.line.Close(),
		p.chip.Close(),
	)
}
