package core

// error_messages.go maps technical errors to messages the front desk can act
// on. Each message carries a code that can be quoted to support.
//
// # Store errors (DB001-DB099)
//
//	DB001 - Reference missing: a booking points at a client or service that no longer exists
//	DB002 - Value out of range: a cost or discount was rejected by the store
//	DB003 - Store unavailable: connection refused or reset
//	DB004 - Store busy: the database is locked by another writer
//	DB005 - Timeout: the store did not answer in time
//
// # File errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Unsupported format: only .csv, .txt, .tsv and .xlsx are read
//	FILE003 - No header row
//	FILE004 - No file provided
//	FILE005 - Empty file
//	FILE006 - Unreadable file: malformed quoting or a damaged workbook
//	FILE007 - Unrecognised layout: the header fits none of the tables
//
// # Import errors (IMP001-IMP099)
//
//	IMP001 - Import busy: another import is still running
//	IMP002 - Import cancelled
//	IMP003 - Import timed out
//	IMP004 - Skipped: a table this one depends on failed in the same run
//	IMP005 - Mapping invalid: the mapping file names an unknown field
//
// # Table errors (TBL001-TBL099)
//
//	TBL001 - Unknown table
//
// # Record errors (REC001-REC099)
//
//	REC001 - Invalid input: a submitted service or booking failed validation
//	REC002 - Not found: the record id does not exist
//	REC003 - Service in use: bookings still reference the service
//
// # Default (ERR000)
//
// Fallback when nothing matches. Check the logs for the technical error.
//
// Sentinel errors are matched with errors.Is first. Driver errors carry no
// sentinels, so their text is then matched case-insensitively; the first
// matching pattern wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/salon/internal/source"
	"github.com/JonMunkholm/salon/internal/store"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// ErrDependencyFailed marks a table skipped because an earlier stage failed.
var ErrDependencyFailed = errors.New("skipped: dependent table failed")

var (
	msgReferenceMissing = UserMessage{
		Message: "A booking refers to a client or service that does not exist",
		Action:  "Import services and clients before bookings",
		Code:    "DB001",
	}
	msgOutOfRange = UserMessage{
		Message: "A value was rejected by the database",
		Action:  "Check that costs are not negative and discounts are between 0% and 100%",
		Code:    "DB002",
	}
	msgStoreDown = UserMessage{
		Message: "Unable to reach the database",
		Action:  "Please try again in a few moments",
		Code:    "DB003",
	}
	msgStoreBusy = UserMessage{
		Message: "The database is busy",
		Action:  "Please try again",
		Code:    "DB004",
	}
	msgStoreTimeout = UserMessage{
		Message: "The database did not respond in time",
		Action:  "Try a smaller file or try again later",
		Code:    "DB005",
	}
	msgTooLarge = UserMessage{
		Message: "File exceeds the maximum size",
		Action:  "Split the file into smaller parts",
		Code:    "FILE001",
	}
	msgUnsupported = UserMessage{
		Message: "This file type cannot be read",
		Action:  "Save the export as .csv or .xlsx",
		Code:    "FILE002",
	}
	msgNoHeader = UserMessage{
		Message: "The file has no header row",
		Action:  "Make sure the first row holds the column names",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Attach at least one of services, clients or bookings",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The file is empty",
		Action:  "Export the table again with its data rows",
		Code:    "FILE005",
	}
	msgUnreadable = UserMessage{
		Message: "The file could not be read",
		Action:  "Open it in a spreadsheet program and save it again",
		Code:    "FILE006",
	}
	msgUnrecognised = UserMessage{
		Message: "The file's columns do not match services, clients or bookings",
		Action:  "Download the template and keep its column names",
		Code:    "FILE007",
	}
	msgBusy = UserMessage{
		Message: "Another import is still running",
		Action:  "Wait for it to finish and try again",
		Code:    "IMP001",
	}
	msgCancelled = UserMessage{
		Message: "The import was cancelled",
		Action:  "Start it again when ready",
		Code:    "IMP002",
	}
	msgTimeout = UserMessage{
		Message: "The import timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "IMP003",
	}
	msgDependency = UserMessage{
		Message: "Not imported because services or clients failed",
		Action:  "Fix the earlier error and import again",
		Code:    "IMP004",
	}
	msgMapping = UserMessage{
		Message: "The column mapping is invalid",
		Action:  "Check the field names in the mapping file",
		Code:    "IMP005",
	}
	msgUnknownTable = UserMessage{
		Message: "Unknown table",
		Action:  "This table type is not configured",
		Code:    "TBL001",
	}
	msgInvalidInput = UserMessage{
		Message: "Some fields are not valid",
		Action:  "Correct the listed fields and save again",
		Code:    "REC001",
	}
	msgNotFound = UserMessage{
		Message: "The record was not found",
		Action:  "Refresh the list; it may have been removed or replaced by an import",
		Code:    "REC002",
	}
	msgServiceInUse = UserMessage{
		Message: "Deletion impossible: the service has bookings",
		Action:  "Remove or move its bookings first",
		Code:    "REC003",
	}
)

// sentinelMessages are checked in order with errors.Is.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrImportBusy, msgBusy},
	{ErrDependencyFailed, msgDependency},
	{ErrNoFiles, msgNoFile},
	{ErrInvalidMapping, msgMapping},
	{ErrUnrecognisedLayout, msgUnrecognised},
	{source.ErrTooLarge, msgTooLarge},
	{source.ErrEmpty, msgEmptyFile},
	{source.ErrUnsupportedFormat, msgUnsupported},
	{source.ErrNoHeader, msgNoHeader},
	{store.ErrUnknownTable, msgUnknownTable},
	{ErrInvalidInput, msgInvalidInput},
	{ErrServiceInUse, msgServiceInUse},
	{store.ErrNotFound, msgNotFound},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPatterns maps driver error text (lower-cased) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// More specific patterns come first.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"request body too large", msgTooLarge},
	{"foreign key", msgReferenceMissing},
	{"check constraint", msgOutOfRange},
	{"numeric field overflow", msgOutOfRange},
	{"connection refused", msgStoreDown},
	{"connection reset", msgStoreDown},
	{"database is locked", msgStoreBusy},
	{"sqlite_busy", msgStoreBusy},
	{"deadlock", msgStoreBusy},
	{"timeout", msgStoreTimeout},
	{"parse error on line", msgUnreadable},
	{"bare \" in non-quoted-field", msgUnreadable},
	{"zip: not a valid zip file", msgUnreadable},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the zero UserMessage for a nil error and the ERR000 fallback when
// nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
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

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
