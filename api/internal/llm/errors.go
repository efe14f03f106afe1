package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies why a call failed so callers can show an actionable message.
type Kind int

const (
	KindUnknown Kind = iota
	KindInputValidation
	KindAuthentication
	KindQuotaOrPermission
	KindTransport
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindInputValidation:
		return "input_validation"
	case KindAuthentication:
		return "authentication"
	case KindQuotaOrPermission:
		return "quota_or_permission"
	case KindTransport:
		return "transport"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// UserMessage is the text shown in the UI for a failure of this kind.
func (k Kind) UserMessage() string {
	switch k {
	case KindInputValidation:
		return "Please fill in the required fields and try again."
	case KindAuthentication:
		return "The Gemini API key is missing or invalid. Set GOOGLE_API_KEY and restart."
	case KindQuotaOrPermission:
		return "Gemini refused the request: the model may be unavailable for this key or the quota is exhausted."
	case KindTransport:
		return "Could not reach Gemini. Check the network connection and try again."
	case KindMalformedResponse:
		return "Gemini answered, but the reply did not have the expected structure. Try again."
	default:
		return "Unexpected error."
	}
}

// Error is the failure type returned by Client and every Generator.
type Error struct {
	Kind   Kind
	Path   Path // transport that produced the failure; empty for input errors
	Status int  // HTTP status when known
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Path != "" {
		b.WriteString(" (" + string(e.Path) + ")")
	}
	if e.Status > 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

var ErrEmptyPrompt = errors.New("prompt is empty")

// InvalidInput builds a KindInputValidation error.
func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInputValidation, Err: fmt.Errorf(format, args...)}
}

func malformed(path Path, format string, args ...any) *Error {
	return &Error{Kind: KindMalformedResponse, Path: path, Status: http.StatusOK, Err: fmt.Errorf(format, args...)}
}

// classifyStatus maps a non-2xx HTTP status and its body to a Kind.
func classifyStatus(code int, body string) Kind {
	switch {
	case code == http.StatusUnauthorized:
		return KindAuthentication
	case code == http.StatusBadRequest && mentionsInvalidKey(body):
		return KindAuthentication
	case code == http.StatusForbidden, code == http.StatusNotFound, code == http.StatusTooManyRequests:
		return KindQuotaOrPermission
	case code >= 500:
		return KindTransport
	case code >= 400:
		// Remaining 4xx are requests the service refused outright.
		return KindQuotaOrPermission
	default:
		return KindMalformedResponse
	}
}

func mentionsInvalidKey(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "api_key_invalid") || strings.Contains(s, "api key not valid") || strings.Contains(s, "api key expired")
}

// classifySDK maps an error returned by the genai client.
func classifySDK(err error) (Kind, int) {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return KindMalformedResponse, 0
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransport, 0
	}
	if ae, ok := apierror.FromError(err); ok {
		// HTTPCode is -1 for errors that came over gRPC.
		code := max(ae.HTTPCode(), 0)
		if ae.Reason() == "API_KEY_INVALID" {
			return KindAuthentication, code
		}
		if code > 0 {
			return classifyStatus(code, ae.Error()), code
		}
	}
	if st, ok := status.FromError(err); ok {
		return classifyCode(st.Code(), st.Message()), 0
	}
	// Dial failures, resets and anything else without a status.
	return KindTransport, 0
}

func classifyCode(c codes.Code, msg string) Kind {
	switch c {
	case codes.Unauthenticated:
		return KindAuthentication
	case codes.InvalidArgument:
		if mentionsInvalidKey(msg) {
			return KindAuthentication
		}
		return KindQuotaOrPermission
	case codes.PermissionDenied, codes.NotFound, codes.ResourceExhausted, codes.FailedPrecondition:
		return KindQuotaOrPermission
	default:
		return KindTransport
	}
}
