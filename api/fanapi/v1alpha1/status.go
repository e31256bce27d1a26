package fanapiv1alpha1

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Status is the payload of GetStatus and WaitForUpdate. It travels as a google.protobuf.Struct.
// LastTemperature is nil until the first valid reading in auto mode.
type Status struct {
	Mode               string    `json:"mode" yaml:"mode"`
	ModeCode           int       `json:"mode_code" yaml:"mode_code"`
	FanOn              bool      `json:"fan_on" yaml:"fan_on"`
	TriggerTemperature int       `json:"trigger_temperature" yaml:"trigger_temperature"`
	LastTemperature    *int      `json:"last_temperature" yaml:"last_temperature"`
	TickPending        bool      `json:"tick_pending" yaml:"tick_pending"`
	Ticks              uint64    `json:"ticks" yaml:"ticks"`
	Reason             string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	UpdatedAt          time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

const (
	fieldMode               = "mode"
	fieldModeCode           = "mode_code"
	fieldFanOn              = "fan_on"
	fieldTriggerTemperature = "trigger_temperature"
	fieldLastTemperature    = "last_temperature"
	fieldTickPending        = "tick_pending"
	fieldTicks              = "ticks"
	fieldReason             = "reason"
	fieldUpdatedAt          = "updated_at"
)

func (s Status) ToStruct() (*structpb.Struct, error) {
	fields := map[string]interface{}{
		fieldMode:               s.Mode,
		fieldModeCode:           s.ModeCode,
		fieldFanOn:              s.FanOn,
		fieldTriggerTemperature: s.TriggerTemperature,
		fieldLastTemperature:    nil,
		fieldTickPending:        s.TickPending,
		fieldTicks:              s.Ticks,
	}
	if s.LastTemperature != nil {
		fields[fieldLastTemperature] = *s.LastTemperature
	}
	if s.Reason != "" {
		fields[fieldReason] = s.Reason
	}
	if !s.UpdatedAt.IsZero() {
		fields[fieldUpdatedAt] = s.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return structpb.NewStruct(fields)
}

// StatusFromStruct decodes a status, missing fields keep their zero value.
func StatusFromStruct(st *structpb.Struct) (Status, error) {
	fields := st.GetFields()
	status := Status{
		Mode:               fields[fieldMode].GetStringValue(),
		ModeCode:           int(fields[fieldModeCode].GetNumberValue()),
		FanOn:              fields[fieldFanOn].GetBoolValue(),
		TriggerTemperature: int(fields[fieldTriggerTemperature].GetNumberValue()),
		TickPending:        fields[fieldTickPending].GetBoolValue(),
		Ticks:              uint64(fields[fieldTicks].GetNumberValue()),
		Reason:             fields[fieldReason].GetStringValue(),
	}
	if v, ok := fields[fieldLastTemperature]; ok {
		if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); isNumber {
			temp := int(v.GetNumberValue())
			status.LastTemperature = &temp
		}
	}
	if raw := fields[fieldUpdatedAt].GetStringValue(); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return status, fmt.Errorf("invalid %s: %w", fieldUpdatedAt, err)
		}
		status.UpdatedAt = ts
	}
	return status, nil
}
