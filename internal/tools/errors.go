package tools

import (
	"errors"

	"github.com/nerrad567/moku-core/internal/deploy"
	"github.com/nerrad567/moku-core/internal/discovery"
	"github.com/nerrad567/moku-core/internal/model"
	"github.com/nerrad567/moku-core/internal/session"
)

// Domain errors for the tools package.
var (
	// ErrUnknownTool is returned for a tool name that is not registered.
	ErrUnknownTool = errors.New("tools: unknown tool")

	// ErrInvalidArgument is returned when a tool argument is missing or
	// has the wrong type.
	ErrInvalidArgument = errors.New("tools: invalid argument")
)

// StatusError is the status of every error result.
const StatusError = "error"

// ErrorResult is the uniform failure envelope of every tool.
type ErrorResult struct {
	Status         string   `json:"status"`
	Message        string   `json:"message"`
	Suggestion     string   `json:"suggestion,omitempty"`
	Details        string   `json:"details,omitempty"`
	Tool           string   `json:"tool,omitempty"`
	AvailableTools []string `json:"available_tools,omitempty"`
}

// guide maps an error class to what the caller should read and do.
type guide struct {
	target     error
	message    string
	suggestion string
}

// guides is checked in order; the first errors.Is match wins. Platform
// mismatch wraps ErrInvalidConfig, so it comes first.
var guides = []guide{
	{session.ErrNotConnected, "Not connected to any device", "Call attach_moku first"},
	{session.ErrAlreadyOwnedElsewhere, "Already connected to a different device",
		"Call release_moku before attaching to another device"},
	{session.ErrUnknownDevice, "Unknown device",
		"Run discover_mokus to refresh the device cache, or pass the device's IP address"},
	{session.ErrConnectionDenied, "Device is owned by another client",
		"Retry attach_moku with force=true to take over the device"},
	{session.ErrConnectionFailed, "Could not connect to the device",
		"Check that the device is powered on and reachable, then retry attach_moku"},
	{deploy.ErrPlatformMismatch, "Configuration targets a different platform",
		"Set platform to match the attached device (see get_device_info)"},
	{model.ErrInvalidRouting, "Invalid routing",
		"Route only between platform channels and channels of slots declared in the config (see get_config)"},
	{model.ErrInvalidConfig, "Invalid configuration",
		"Fix the fields listed in details and call push_config again"},
	{deploy.ErrPartialDeployment, "Deployment incomplete",
		"Check list_slots, correct the failing slot, and call push_config again"},
	{deploy.ErrHardware, "Device rejected the request",
		"Check the device with get_device_info and retry"},
	{discovery.ErrBrowse, "Device discovery failed",
		"Check that mDNS traffic is allowed on this network, or attach by IP address"},
	{ErrInvalidArgument, "Invalid arguments",
		"Check the tool's parameters and retry"},
}

// errorResult converts err into the failure envelope. Unclassified errors
// carry the raw message and the tool name.
func errorResult(tool string, err error) *ErrorResult {
	for _, g := range guides {
		if errors.Is(err, g.target) {
			return &ErrorResult{
				Status:     StatusError,
				Message:    g.message,
				Suggestion: g.suggestion,
				Details:    err.Error(),
			}
		}
	}
	return &ErrorResult{
		Status:  StatusError,
		Message: err.Error(),
		Tool:    tool,
	}
}

// unknownTool is the envelope for a name that is not registered.
func unknownTool(name string) *ErrorResult {
	return &ErrorResult{
		Status:         StatusError,
		Message:        "Unknown tool: " + name,
		AvailableTools: Names(),
	}
}

// IsError reports whether a Call result is a failure envelope.
func IsError(result any) bool {
	_, ok := result.(*ErrorResult)
	return ok
}
