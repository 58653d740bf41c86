// Package schema validates the response bodies the executor parses off the
// wire: device-info, is-os-ready, extended-procedure status, and retry
// target matching. Declarative struct-tag validation (go-playground/
// validator/v10) rather than scattered field checks, per spec §9 "Schema
// validation" design note.
package schema

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// PowerState is the normalized set of values a device-info response's
// powerState field may take.
type PowerState string

const (
	PowerOff     PowerState = "Off"
	PowerOn      PowerState = "On"
	PoweringOff  PowerState = "PoweringOff"
	PoweringOn   PowerState = "PoweringOn"
	PowerPaused  PowerState = "Paused"
	PowerUnknown PowerState = "Unknown"
)

// DeviceInfo is the parsed, validated body of a device-info response.
type DeviceInfo struct {
	Type            string     `json:"type" validate:"required"`
	PowerState      PowerState `json:"powerState" validate:"omitempty,oneof=Off On PoweringOff PoweringOn Paused Unknown"`
	PowerCapability *bool      `json:"powerCapability"`
}

// IsCPU reports whether the normalized type is "CPU".
func (d DeviceInfo) IsCPU() bool {
	return strings.ToUpper(d.Type) == "CPU"
}

// Powerable reports whether the disconnect/connect pre-check should treat
// this device as one whose power state it must manage: true unless the
// device is a CPU or explicitly reports powerCapability=false.
func (d DeviceInfo) Powerable() bool {
	if d.IsCPU() {
		return false
	}
	if d.PowerCapability != nil && !*d.PowerCapability {
		return false
	}
	return true
}

// ParseDeviceInfo validates and normalizes a device-info response body.
func ParseDeviceInfo(body map[string]any) (DeviceInfo, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return DeviceInfo{}, err
	}
	var d DeviceInfo
	if err := json.Unmarshal(raw, &d); err != nil {
		return DeviceInfo{}, err
	}
	d.Type = strings.ToUpper(d.Type)
	if err := validate.Struct(d); err != nil {
		return DeviceInfo{}, err
	}
	return d, nil
}

// IsOSReady is the parsed body of an is-os-ready response.
type IsOSReady struct {
	Status bool `json:"status" validate:"required"`
}

// ParseIsOSReady validates the boot-check response body. The boolean `status`
// field must be present and a boolean; any other shape is a schema error.
func ParseIsOSReady(body map[string]any) (IsOSReady, error) {
	v, ok := body["status"]
	if !ok {
		return IsOSReady{}, errSchema("missing status field")
	}
	b, ok := v.(bool)
	if !ok {
		return IsOSReady{}, errSchema("status field is not boolean")
	}
	return IsOSReady{Status: b}, nil
}

// ExtendedProcedureState is the status reported by the workflow-manager's
// extended-procedure status endpoint.
type ExtendedProcedureState string

const (
	ExtProcInProgress ExtendedProcedureState = "IN_PROGRESS"
	ExtProcCompleted  ExtendedProcedureState = "COMPLETED"
	ExtProcFailed     ExtendedProcedureState = "FAILED"
)

// ExtendedProcedureStatus is the parsed, validated extended-procedure
// status body.
type ExtendedProcedureStatus struct {
	Status ExtendedProcedureState `json:"status" validate:"required,oneof=IN_PROGRESS COMPLETED FAILED"`
}

// Terminal reports whether this status ends polling.
func (s ExtendedProcedureStatus) Terminal() bool {
	return s.Status == ExtProcCompleted || s.Status == ExtProcFailed
}

// ParseExtendedProcedureStatus validates the polling response body.
func ParseExtendedProcedureStatus(body map[string]any) (ExtendedProcedureStatus, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return ExtendedProcedureStatus{}, err
	}
	var s ExtendedProcedureStatus
	if err := json.Unmarshal(raw, &s); err != nil {
		return ExtendedProcedureStatus{}, err
	}
	if err := validate.Struct(s); err != nil {
		return ExtendedProcedureStatus{}, err
	}
	return s, nil
}

// ExtendedProcedureAccepted is the 202 body returned when an extended
// procedure is started.
type ExtendedProcedureAccepted struct {
	ExtendedProcedureID string `json:"extendedProcedureID"`
}

// RetryTargetBody is the subset of a non-success response body inspected to
// match it against a configured retry target: a top-level `code` string.
// A body that fails to parse as this shape simply fails to match any
// target, falling back to the kind's default retry envelope (spec §4.1
// step 2; original_source/src/layoutapply/schema.py).
type RetryTargetBody struct {
	Code string `json:"code"`
}

// ParseRetryTargetCode extracts the `code` field used to match a configured
// retry target, returning ("", false) if the body does not parse as JSON
// carrying a string `code` field.
func ParseRetryTargetCode(body map[string]any) (string, bool) {
	v, ok := body["code"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

type schemaError struct{ msg string }

func (e *schemaError) Error() string { return e.msg }

func errSchema(msg string) error { return &schemaError{msg: msg} }
