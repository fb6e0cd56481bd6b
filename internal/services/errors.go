package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classify pipeline failures. Job-level sentinels convert a
// file to Failed in the batch summary; run-level sentinels abort the whole
// run.
var (
	ErrProbe        = errors.New("probe failure")
	ErrRewrap       = errors.New("rewrap failure")
	ErrLaunch       = errors.New("launch failure")
	ErrProcess      = errors.New("process failure")
	ErrVerification = errors.New("verification failure")
	ErrFilesystem   = errors.New("filesystem failure")
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// RunFatal reports whether an error should abort the entire run rather than
// fail a single job.
func RunFatal(err error) bool {
	return errors.Is(err, ErrFilesystem)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
