package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/smithy-go"
)

// ErrorKind tags every failure with where it came from.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindService    ErrorKind = "service"
	KindTransport  ErrorKind = "transport"
	KindTimeout    ErrorKind = "timeout"
	KindCanceled   ErrorKind = "canceled"
	KindInternal   ErrorKind = "internal"
)

// ToolError names the failing operation and keeps the original cause.
type ToolError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ToolError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Invalid reports a bad or missing argument. Handlers return it before any
// AWS call is made.
func Invalid(format string, args ...any) error {
	return &ToolError{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with op and its kind. Nil stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ToolError{Kind: KindOf(err), Op: op, Err: err}
}

func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) && toolErr.Kind != "" {
		return toolErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return KindService
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}
	// An SDK operation failure that carries no API error never got a
	// response from the service.
	var opErr *smithy.OperationError
	if errors.As(err, &opErr) {
		return KindTransport
	}
	return KindInternal
}

type ErrorDetail struct {
	Code      string    `json:"code"`
	Kind      ErrorKind `json:"kind"`
	Operation string    `json:"operation,omitempty"`
	Message   string    `json:"message"`
	Hint      string    `json:"hint,omitempty"`
	Retryable bool      `json:"retryable"`
}

type ErrorEnvelope struct {
	Error   ErrorDetail `json:"error"`
	Details any         `json:"details,omitempty"`
}

func BuildErrorEnvelope(err error, details any) map[string]any {
	envelope := ErrorEnvelope{Error: classifyError(err)}
	out := map[string]any{"error": envelope.Error}
	if details != nil {
		out["details"] = details
	}
	return out
}

func classifyError(err error) ErrorDetail {
	detail := ErrorDetail{Kind: KindOf(err), Operation: operationOf(err)}
	if err != nil {
		detail.Message = err.Error()
	}
	switch detail.Kind {
	case KindValidation:
		detail.Code, detail.Hint = "invalid_request", "Fix the tool arguments; nothing was sent to AWS."
	case KindTimeout:
		detail.Code, detail.Hint, detail.Retryable = "timeout", "Increase the timeout or check network latency to AWS.", true
	case KindCanceled:
		detail.Code, detail.Hint, detail.Retryable = "canceled", "Request was canceled before completion.", true
	case KindTransport:
		detail.Code, detail.Hint, detail.Retryable = "transport_error", "AWS endpoint unreachable; check network, proxy and region.", true
	case KindService:
		classifyAPIError(err, &detail)
	default:
		detail.Code, detail.Hint = "internal", "Check server logs for details."
	}
	return detail
}

func classifyAPIError(err error, detail *ErrorDetail) {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		detail.Code, detail.Hint, detail.Retryable = "upstream_error", "AWS API error; verify inputs and retry.", true
		return
	}
	switch apiErr.ErrorCode() {
	case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation", "UnrecognizedClientException", "ExpiredTokenException":
		detail.Code, detail.Hint = "forbidden", "Check AWS credentials and IAM policies."
	case "Throttling", "ThrottlingException", "RequestLimitExceeded", "TooManyRequestsException", "ServiceQuotaExceededException":
		detail.Code, detail.Hint, detail.Retryable = "rate_limited", "Retry with backoff.", true
	case "ResourceNotFoundException", "NotFoundException", "NoSuchEntity", "RepositoryNotFoundException", "ImageNotFoundException", "NoSuchBucket":
		detail.Code, detail.Hint = "not_found", "Verify resource identifiers and region; child ids must belong to their parent."
	case "ValidationException", "InvalidParameterException", "InvalidParameterValue", "RangeNotSatisfiableException":
		detail.Code, detail.Hint = "invalid_request", "Fix request parameters."
	case "ConflictException":
		detail.Code, detail.Hint, detail.Retryable = "conflict", "Resource state conflict; retry once it settles.", true
	default:
		detail.Code, detail.Hint = "upstream_error", "AWS API error; verify inputs and retry."
		detail.Retryable = apiErr.ErrorFault() == smithy.FaultServer
	}
}

func operationOf(err error) string {
	var toolErr *ToolError
	if errors.As(err, &toolErr) && toolErr.Op != "" {
		return toolErr.Op
	}
	var opErr *smithy.OperationError
	if errors.As(err, &opErr) {
		return opErr.Service() + "." + opErr.Operation()
	}
	return ""
}
