package service

import (
	"errors"
	"strings"

	"tenurix/internal/apperror"
)

// classify passes taxonomy errors through and turns anything else into an
// internal error carrying msg.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apperror.Internal(msg, err)
}

// trimmedNote returns nil for an absent or blank note.
func trimmedNote(note *string) *string {
	if note == nil {
		return nil
	}
	t := strings.TrimSpace(*note)
	if t == "" {
		return nil
	}
	return &t
}

// reviewStatusFilter normalizes a queue filter. Empty means Pending and "all"
// disables filtering.
func reviewStatusFilter(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", "pending":
		return "Pending", nil
	case "approved":
		return "Approved", nil
	case "rejected":
		return "Rejected", nil
	case "all":
		return "", nil
	default:
		return "", apperror.Validation("status", "status must be Pending, Approved, Rejected or all")
	}
}
