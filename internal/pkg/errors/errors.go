package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUpstreamUnavailable marks an unreachable or timed out upstream call.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedUpstreamData marks an upstream payload missing expected fields.
	ErrMalformedUpstreamData = errors.New("malformed upstream data")
)

// Wrap tags err with marker so callers can classify it with errors.Is while
// keeping the operation context in the message.
func Wrap(marker error, operation, message string, err error) error {
	if marker == nil {
		marker = ErrUpstreamUnavailable
	}
	detail := buildDetail(operation, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, ": ")
}
