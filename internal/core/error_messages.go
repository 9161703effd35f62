package core

// error_messages.go maps errors to user-facing messages with codes.
//
// # Error Codes Reference
//
// Codes are quoted in CLI output and on the report viewer so a user can look
// up what went wrong and what to do about it.
//
// # Dataset Errors
//
//	SCH001 - Schema mismatch: the header does not match the expected columns
//	ROW001 - Row parse error: a row is malformed
//	GRF001 - Duplicate identifier: two records of one kind share an id
//	CHN001 - Cyclic chain: OB predecessor links form a loop
//
// # Mutation Errors
//
//	MUT001 - Unknown WID: the replacement is not a ground element
//	MUT002 - Slot not found: no slot matched the update
//	MUT003 - Index out of range: a slot position is outside the slot list
//	MUT004 - Record not found: the target id is not in the file
//	WRT001 - Write sanity check: the written file had the wrong row count
//
// # File Errors
//
//	FILE001 - File not found
//	FILE002 - Permission denied
//	ENC001  - Unknown encoding label
//
// # Request Errors
//
//	REQ001  - Request cancelled
//	REQ002  - Request timed out
//	BUSY001 - Too many concurrent requests
//	DB001   - History database unreachable
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the log file for the technical error.
//
// # Matching
//
// Sentinels are matched with errors.Is first, in table order, so wrapped
// errors are recognised. Text patterns are only consulted afterwards, for
// errors from libraries that expose no sentinel.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrSchemaMismatch, UserMessage{
		Message: "The file header does not match the expected columns",
		Action:  "Check that the file is the right kind and was exported without column changes",
		Code:    "SCH001",
	}},
	{ErrRowParse, UserMessage{
		Message: "A row could not be parsed",
		Action:  "Fix the reported line or check the --encoding setting",
		Code:    "ROW001",
	}},
	{ErrDuplicateIdentifier, UserMessage{
		Message: "Two records share the same id",
		Action:  "Remove or renumber the duplicate row before running analysis",
		Code:    "GRF001",
	}},
	{ErrCyclicChain, UserMessage{
		Message: "OB predecessor links form a loop",
		Action:  "Break the loop by clearing one predecessor",
		Code:    "CHN001",
	}},
	{ErrUnknownWID, UserMessage{
		Message: "The replacement WID is not a ground element",
		Action:  "Pick a WID that exists in the ground file",
		Code:    "MUT001",
	}},
	{ErrSlotNotFound, UserMessage{
		Message: "No slot matched the update",
		Action:  "Check the OB id, WID and current count",
		Code:    "MUT002",
	}},
	{ErrIndexOutOfRange, UserMessage{
		Message: "Slot position is out of range",
		Action:  "Use a position between 0 and the last slot",
		Code:    "MUT003",
	}},
	{ErrRecordNotFound, UserMessage{
		Message: "The record does not exist",
		Action:  "Check the id against the file",
		Code:    "MUT004",
	}},
	{ErrWriteSanityCheck, UserMessage{
		Message: "The written file failed verification; the original was kept",
		Action:  "Check free disk space and try again",
		Code:    "WRT001",
	}},
	{ErrUnknownEncoding, UserMessage{
		Message: "Unknown text encoding",
		Action:  "Use a label such as utf-8, windows-1252 or latin1",
		Code:    "ENC001",
	}},
	{os.ErrNotExist, UserMessage{
		Message: "File not found",
		Action:  "Check --data-dir, --scenario or the explicit file paths",
		Code:    "FILE001",
	}},
	{os.ErrPermission, UserMessage{
		Message: "Permission denied",
		Action:  "Check that the file is readable and its directory writable",
		Code:    "FILE002",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller scenario or try again later",
		Code:    "REQ002",
	}},
	{ErrTooManyRequests, UserMessage{
		Message: "The server is busy loading other scenarios",
		Action:  "Please wait a moment and try again",
		Code:    "BUSY001",
	}},
}

// errorPatterns are matched case-insensitively against the error text.
var errorPatterns = []errorPattern{
	{"connection refused", UserMessage{
		Message: "Unable to connect to the history database",
		Action:  "Check DATABASE_URL or run without history",
		Code:    "DB001",
	}},
	{"database not configured", UserMessage{
		Message: "The history database is not configured",
		Action:  "Set DATABASE_URL to record and browse audit runs",
		Code:    "DB002",
	}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log file for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If nothing matches, the ERR000 fallback is returned.
//
// Example:
//
//	_, err := graph.Load(ctx, files, opts)
//	msg := MapError(err)
//	// msg.Code == "GRF001" for a duplicate id
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
