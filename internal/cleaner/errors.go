package cleaner

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/fenilsonani/adminkit/internal/scanner"
)

// ErrorReason categorizes why an action failed
type ErrorReason int

const (
	ErrorPermissionDenied ErrorReason = iota
	ErrorFileInUse
	ErrorFileNotFound
	ErrorIsDirectory
	ErrorNotDirectory
	ErrorInvalidPath
	ErrorAlreadyExists
	ErrorUnknown
)

// String returns a human-readable error reason
func (e ErrorReason) String() string {
	switch e {
	case ErrorPermissionDenied:
		return "Permission denied"
	case ErrorFileInUse:
		return "File is in use"
	case ErrorFileNotFound:
		return "File not found"
	case ErrorIsDirectory:
		return "Is a directory"
	case ErrorNotDirectory:
		return "Not a directory"
	case ErrorInvalidPath:
		return "Invalid path"
	case ErrorAlreadyExists:
		return "Target already exists"
	case ErrorUnknown:
		return "Unknown error"
	default:
		return "Unspecified error"
	}
}

// ActionError describes a failed action on one entry
type ActionError struct {
	Path      string
	Action    Action
	Reason    ErrorReason
	Original  error
	Retryable bool
	NeedsRoot bool
}

// Error implements the error interface
func (e *ActionError) Error() string {
	return fmt.Sprintf("%s %s: %s (%v)", e.Action, e.Path, e.Reason, e.Original)
}

// Unwrap returns the underlying error
func (e *ActionError) Unwrap() error {
	return e.Original
}

// UserMessage returns the warning logged for this failure
func (e *ActionError) UserMessage() string {
	verb := e.Action.verb()
	switch e.Reason {
	case ErrorPermissionDenied:
		if e.NeedsRoot {
			return fmt.Sprintf("Failed to %s %s: permission denied (run as root)", verb, e.Path)
		}
		return fmt.Sprintf("Failed to %s %s: permission denied", verb, e.Path)
	case ErrorFileInUse:
		return fmt.Sprintf("Failed to %s %s: file is busy", verb, e.Path)
	case ErrorFileNotFound:
		return fmt.Sprintf("Failed to %s %s: it disappeared during the scan", verb, e.Path)
	case ErrorInvalidPath:
		return fmt.Sprintf("Refusing to %s %s: %v", verb, e.Path, e.Original)
	default:
		return fmt.Sprintf("Failed to %s %s: %v", verb, e.Path, e.Original)
	}
}

// CategorizeError analyzes an error and returns a categorized ActionError
func CategorizeError(path string, action Action, err error) *ActionError {
	if err == nil {
		return nil
	}

	var actErr *ActionError
	if errors.As(err, &actErr) {
		return actErr
	}

	result := &ActionError{
		Path:     path,
		Action:   action,
		Original: err,
		Reason:   ErrorUnknown,
	}

	var errno syscall.Errno
	switch {
	case errors.Is(err, os.ErrNotExist):
		result.Reason = ErrorFileNotFound
	case errors.Is(err, os.ErrExist):
		result.Reason = ErrorAlreadyExists
	case errors.Is(err, os.ErrPermission):
		result.Reason = ErrorPermissionDenied
		result.NeedsRoot = true
	case errors.As(err, &errno):
		switch errno {
		case syscall.EBUSY, syscall.ETXTBSY:
			result.Reason = ErrorFileInUse
			result.Retryable = true
		case syscall.EISDIR:
			result.Reason = ErrorIsDirectory
		case syscall.ENOTDIR:
			result.Reason = ErrorNotDirectory
		}
	}

	return result
}

func invalidPath(path string, action Action, err error) *ActionError {
	return &ActionError{Path: path, Action: action, Reason: ErrorInvalidPath, Original: err}
}

// Failures collects the action errors of failed records, in scan order
func Failures(results ...*scanner.ScanResult) []*ActionError {
	var errs []*ActionError
	for _, r := range results {
		for _, rec := range r.Records {
			if rec.Outcome != scanner.OutcomeFailed {
				continue
			}
			errs = append(errs, CategorizeError(rec.Entry.Path, ActionReport, rec.Err))
		}
	}
	return errs
}

// GroupErrors groups action errors by reason
func GroupErrors(errs []*ActionError) map[ErrorReason][]*ActionError {
	grouped := make(map[ErrorReason][]*ActionError)
	for _, err := range errs {
		grouped[err.Reason] = append(grouped[err.Reason], err)
	}
	return grouped
}

// FormatErrorSummary summarizes failures in one line per reason
func FormatErrorSummary(errs []*ActionError) string {
	if len(errs) == 0 {
		return ""
	}

	grouped := GroupErrors(errs)
	var b strings.Builder
	fmt.Fprintf(&b, "%d action(s) failed:", len(errs))
	for reason := ErrorPermissionDenied; reason <= ErrorUnknown; reason++ {
		if list, ok := grouped[reason]; ok {
			fmt.Fprintf(&b, "\n  %s: %d", reason, len(list))
			if reason == ErrorPermissionDenied {
				b.WriteString(" (run as root)")
			}
		}
	}
	return b.String()
}
