package core

// error_messages.go maps technical errors to user-facing messages with a
// code support staff can look up.
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Incomplete configuration: the operation was not fully set up
//	         Action: the specific reason, e.g. which join column is missing
//	         Matches: table.ErrConfiguration
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: the input exceeds the size limit
//	          Patterns: "file too large"
//
//	FILE002 - Invalid CSV: the input could not be decoded
//	          Matches: codec.ErrInvalidCSV, pattern "invalid csv"
//
//	FILE003 - Encoding error: the input contains invalid characters
//	          Patterns: "encoding error"
//
//	FILE004 - No file: no file was supplied for a table slot
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: the supplied file has no bytes
//	          Patterns: "empty file"
//
// # Operation Errors (OP001-OP099)
//
//	OP001 - System busy: every operation slot is taken
//	        Matches: ErrBusy
//
//	OP002 - Artifact not found: the download expired or never existed
//	        Matches: ErrArtifactNotFound
//
//	OP003 - Storage full: generated files exceed the storage cap
//	        Matches: ErrArtifactStoreFull
//
// # Request Errors (UPL004-UPL005)
//
//	UPL004 - Request cancelled: "context canceled"
//	UPL005 - Request timeout: "context deadline exceeded"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application log for the
// original error when a user reports ERR000.
//
// Typed errors are matched first with errors.Is; the remaining patterns are
// matched case-insensitively with strings.Contains and the first match
// wins, so more specific patterns come first.

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JonMunkholm/tabletools/internal/codec"
	"github.com/JonMunkholm/tabletools/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds are checked with errors.Is before any pattern.
var errorKinds = []errorKind{
	{
		target: table.ErrConfiguration,
		msg: UserMessage{
			Message: "The operation is not fully configured",
			Action:  "Complete the settings and try again",
			Code:    "CFG001",
		},
	},
	{
		target: codec.ErrInvalidCSV,
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure every line has the same number of comma-separated fields",
			Code:    "FILE002",
		},
	},
	{
		target: ErrBusy,
		msg: UserMessage{
			Message: "System is busy processing other operations",
			Action:  "Please wait a moment and try again",
			Code:    "OP001",
		},
	},
	{
		target: ErrArtifactNotFound,
		msg: UserMessage{
			Message: "The requested file is no longer available",
			Action:  "Run the operation again to regenerate it",
			Code:    "OP002",
		},
	},
	{
		target: ErrArtifactStoreFull,
		msg: UserMessage{
			Message: "Generated files exceed the storage limit",
			Action:  "Download pending results or try again later",
			Code:    "OP003",
		},
	},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure every line has the same number of comma-separated fields",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The selected file is empty",
			Action:  "Please choose a CSV file with data rows",
			Code:    "FILE005",
		},
	},

	// Request lifecycle
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// A ConfigurationError carries its reason into Action, so the user learns
// which setting is missing:
//
//	msg := MapError(table.Configf("diff", "no join column chosen for the first table"))
//	// msg.Code == "CFG001"
//	// msg.Action == "No join column chosen for the first table"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			msg := k.msg
			var ce *table.ConfigurationError
			if errors.As(err, &ce) && ce.Reason != "" {
				msg.Action = sentence(ce.Reason)
			}
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with the message
// shown to users.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err and wraps it. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
