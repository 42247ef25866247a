package errors

// Error codes
const (
	// Startup errors; fatal, the controller never reaches steady state.
	ErrCalibrationIncomplete ErrorCode = "calibration_incomplete"
	ErrCalibrationDegenerate ErrorCode = "calibration_degenerate"

	// Steady-state errors, absorbed by the task that hits them.
	ErrQueueFull               ErrorCode = "queue_full"
	ErrActuatorIndexOutOfRange ErrorCode = "actuator_index_out_of_range"
	ErrPeripheralRead          ErrorCode = "peripheral_read_failed"
	ErrPublish                 ErrorCode = "publish_failed"

	// Filtered input, not a failure.
	ErrDebounceRejected ErrorCode = "debounce_rejected"

	// Configuration errors
	ErrInvalidConfig ErrorCode = "invalid_configuration"
	ErrReadConfig    ErrorCode = "read_config_failed"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrNotSupported   ErrorCode = "not_supported"
)

var errorMessages = map[ErrorCode]string{
	ErrCalibrationIncomplete:   "Calibration captured no samples",
	ErrCalibrationDegenerate:   "Calibration center coincides with an axis bound",
	ErrQueueFull:               "Sample queue full",
	ErrActuatorIndexOutOfRange: "Actuator index out of range",
	ErrPeripheralRead:          "Peripheral read failed",
	ErrPublish:                 "Publish failed",
	ErrDebounceRejected:        "Input rejected by debounce window",
	ErrInvalidConfig:           "Invalid configuration",
	ErrReadConfig:              "Failed to read configuration",
	ErrInitFailed:              "Initialization failed",
	ErrShutdownFailed:          "Shutdown failed",
	ErrNotSupported:            "Not supported on this platform",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}

// IsFatal reports whether an error code must abort startup.
func IsFatal(code ErrorCode) bool {
	switch code {
	case ErrCalibrationIncomplete, ErrCalibrationDegenerate, ErrInvalidConfig, ErrReadConfig, ErrInitFailed:
		return true
	default:
		return false
	}
}
