package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrValidation     = errors.New("validation error")
	ErrProbe          = errors.New("probe error")
	ErrCrop           = errors.New("crop error")
	ErrDetectorLaunch = errors.New("detector launch error")
	ErrExport         = errors.New("export error")
	ErrExternalTool   = errors.New("external tool error")
	ErrNotFound       = errors.New("not found")
	ErrTimeout        = errors.New("timeout")
	ErrTransient      = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatalForSource reports whether err ends processing of the current source
// video. Callers iterating over many recordings log these and move on.
func IsFatalForSource(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrProbe), errors.Is(err, ErrCrop), errors.Is(err, ErrDetectorLaunch),
		errors.Is(err, ErrTimeout), errors.Is(err, ErrExternalTool), errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound):
		return true
	default:
		return false
	}
}

// Marker returns the short label of the first sentinel err matches, or
// "unknown" when none apply.
func Marker(err error) string {
	for _, marker := range []error{
		ErrConfiguration, ErrValidation, ErrProbe, ErrCrop, ErrDetectorLaunch,
		ErrExport, ErrExternalTool, ErrNotFound, ErrTimeout, ErrTransient,
	} {
		if errors.Is(err, marker) {
			return marker.Error()
		}
	}
	return "unknown"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
