package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 12000-12999: Problem errors
// 13000-13999: Execution & Engine errors
// 14000-14999: Leaderboard & solved-state errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError       ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102

	// Cache errors (10200-10299)
	CacheError     ErrorCode = 10200
	CacheMiss      ErrorCode = 10201
	CacheSetFailed ErrorCode = 10202

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// Storage & messaging (10400-10499)
	StorageError ErrorCode = 10400
	PublishError ErrorCode = 10401

	// ========== Problem Errors (12000-12999) ==========

	ProblemNotFound  ErrorCode = 12000
	TestCaseNotFound ErrorCode = 12100
	TestCaseInvalid  ErrorCode = 12102

	// ========== Execution & Engine Errors (13000-13999) ==========

	// Request (13000-13099)
	ExecutionNotFound    ErrorCode = 13000
	CodeTooLarge         ErrorCode = 13002
	LanguageNotSupported ErrorCode = 13003
	SubmitTooFrequently  ErrorCode = 13004
	UnknownMode          ErrorCode = 13006

	// Engine (13100-13199)
	JudgeSystemError ErrorCode = 13101
	CompilationError ErrorCode = 13102
	JudgePending     ErrorCode = 13107
	EngineRejected   ErrorCode = 13108

	// Custom input (13200-13299)
	CustomInputTooLarge ErrorCode = 13201
	TooManyCustomInputs ErrorCode = 13202

	// ========== Leaderboard & Solved (14000-14999) ==========

	SolvedRecordFailed  ErrorCode = 14000
	RankingNotAvailable ErrorCode = 14200
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:       "Database operation failed",
	RecordNotFound:      "Record not found in database",
	RecordAlreadyExists: "Record already exists",

	// Cache
	CacheError:     "Cache operation failed",
	CacheMiss:      "Cache miss",
	CacheSetFailed: "Failed to set cache",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Storage & messaging
	StorageError: "Object storage operation failed",
	PublishError: "Failed to publish message",

	// Problem
	ProblemNotFound:  "Problem not found",
	TestCaseNotFound: "Test case not found",
	TestCaseInvalid:  "Invalid test case format",

	// Execution
	ExecutionNotFound:    "Execution not found",
	CodeTooLarge:         "Code is too large",
	LanguageNotSupported: "Unsupported language",
	SubmitTooFrequently:  "Submitting too frequently, please wait",
	UnknownMode:          "Unknown execution mode",

	// Engine
	JudgeSystemError: "Judge system error",
	CompilationError: "Compilation Error",
	JudgePending:     "Judge results still pending",
	EngineRejected:   "Execution engine rejected the batch",

	// Custom input
	CustomInputTooLarge: "Custom input is too large",
	TooManyCustomInputs: "Too many custom inputs",

	// Leaderboard & solved
	SolvedRecordFailed:  "Failed to record solved problem",
	RankingNotAvailable: "Ranking is not available",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized:
		return 401
	case c == Forbidden:
		return 403
	case c == NotFound, c == ProblemNotFound, c == ExecutionNotFound, c == TestCaseNotFound:
		return 404
	case c == TooManyRequests, c == SubmitTooFrequently:
		return 429
	case c == JudgeSystemError, c == EngineRejected:
		return 502
	case c == ServiceUnavailable:
		return 503
	case c == Timeout, c == JudgePending:
		return 504
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == LanguageNotSupported, c == UnknownMode, c == CodeTooLarge,
		c == CustomInputTooLarge, c == TooManyCustomInputs:
		return 400
	default:
		return 500
	}
}
