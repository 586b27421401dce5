package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// Codes by group:
//
//	ING001-ING006  ingestion failures; the message is the ingestion error
//	               text unchanged, including its row number
//	DB001          duplicate product SKU + purchase date
//	DB004-DB007    database connectivity
//	FILE001-FILE004 upload transport problems
//	UPL002-UPL005  import scheduling and request lifetime
//	RATE001        request throttling
//	ERR000         anything else; check the server log for the cause
//
// Typed errors are matched first with errors.Is/As. Untyped errors fall back
// to case-insensitive substring patterns where the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/pima/internal/ingest"
)

// UserMessage is an error as shown to the uploader.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

var ingestActions = map[ingest.Kind]UserMessage{
	ingest.KindInvalidDocument: {
		Action: "Upload an .xlsx workbook or a UTF-8 CSV file",
		Code:   "ING001",
	},
	ingest.KindMissingHeaderRow: {
		Action: "Add a header row naming the columns on the first line",
		Code:   "ING002",
	},
	ingest.KindInvalidNumber: {
		Action: "Use plain decimal numbers without currency symbols or separators",
		Code:   "ING003",
	},
	ingest.KindInvalidDateFormat: {
		Action: "Use a date such as 2024-03-01, 01/03/2024 or 01 Mar 2024",
		Code:   "ING004",
	},
	ingest.KindMissingSKU: {
		Action: "Fill in the Product SKU on that row",
		Code:   "ING005",
	},
	ingest.KindMissingPurchaseDate: {
		Action: "Fill in the Purchase Date on that row",
		Code:   "ING006",
	},
}

var (
	duplicateMessage = UserMessage{
		Message: ErrDuplicateRecord.Error(),
		Action:  "Remove rows that are already stored or repeated in the file",
		Code:    "DB001",
	}
	busyMessage = UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	cancelledMessage = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	deadlineMessage = UserMessage{
		Message: "Request timed out",
		Action:  "Try uploading a smaller file or check your connection",
		Code:    "UPL005",
	}
)

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that arrive without a type, mostly from the
// database driver and the HTTP layer.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try uploading a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "multipart",
		msg: UserMessage{
			Message: "Upload was not a valid multipart form",
			Action:  "Send the file in a form field named \"file\"",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a spreadsheet to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts any error to a UserMessage. A nil error maps to the
// zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ie *ingest.Error
	if errors.As(err, &ie) {
		msg := ingestActions[ie.Kind]
		msg.Message = ie.Error()
		return msg
	}

	switch {
	case errors.Is(err, ErrDuplicateRecord):
		return duplicateMessage
	case errors.Is(err, ErrTooManyUploads):
		return busyMessage
	case errors.Is(err, context.Canceled):
		return cancelledMessage
	case errors.Is(err, context.DeadlineExceeded):
		return deadlineMessage
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
