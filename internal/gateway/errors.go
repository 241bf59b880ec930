package gateway

import (
	"errors"
	"net/http"

	"biblestudy/internal/prompt"
	"biblestudy/internal/services"
	"biblestudy/internal/services/llm"
)

// User-facing failure messages.
const (
	MsgMethodNotAllowed = "Method Not Allowed"
	MsgConfiguration    = "Server configuration error: Azure OpenAI credentials are not set."
	MsgMissingFields    = `Missing "prompt" or "type" in request body.`
	MsgInvalidJSON      = "Request body must be valid JSON."
	MsgForbidden        = "Access Denied. This could be a Firewall or IAM Role issue on your Azure OpenAI resource. Check your Azure Function and Azure OpenAI networking and access control settings."
	MsgUnauthorized     = "Authentication Failed. The API Key is likely invalid or expired."
	MsgNotFound         = "Resource Not Found. Check if the Azure OpenAI endpoint or deployment name is correct."
	MsgQuota            = "Azure OpenAI quota exceeded. Please check your usage limits."
	MsgGeneric          = "An error occurred while processing your request."
)

// InvalidTypeMessage is the bad-request message for an unknown intent.
func InvalidTypeMessage() string {
	return `Invalid "type" parameter. Expected one of: ` + prompt.IntentNames() + "."
}

// Failure is a classified gateway failure ready to be rendered.
type Failure struct {
	Status         int
	Message        string
	Details        string
	UpstreamStatus int
	Err            error
}

func (f *Failure) Error() string {
	if f.Details == "" {
		return f.Message
	}
	return f.Message + " " + f.Details
}

func (f *Failure) Unwrap() error { return f.Err }

func newFailure(status int, message string, marker error) *Failure {
	return &Failure{Status: status, Message: message, Err: marker}
}

// classify maps an upstream error onto a status and message. Provider status
// codes are checked before quota codes.
func classify(err error) *Failure {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}
	out := &Failure{Status: http.StatusInternalServerError, Message: MsgGeneric, Details: err.Error(), Err: err}
	if statusErr, ok := llm.AsStatusError(err); ok {
		out.UpstreamStatus = statusErr.StatusCode
		if statusErr.Message != "" {
			out.Details = statusErr.Message
		}
		switch {
		case statusErr.StatusCode == http.StatusForbidden:
			out.Status, out.Message = http.StatusForbidden, MsgForbidden
		case statusErr.StatusCode == http.StatusUnauthorized:
			out.Status, out.Message = http.StatusUnauthorized, MsgUnauthorized
		case statusErr.StatusCode == http.StatusNotFound:
			out.Status, out.Message = http.StatusNotFound, MsgNotFound
		case statusErr.QuotaExhausted(), statusErr.StatusCode == http.StatusTooManyRequests:
			out.Status, out.Message = http.StatusTooManyRequests, MsgQuota
		}
		return out
	}
	switch {
	case errors.Is(err, services.ErrConfiguration):
		out.Message = MsgConfiguration
	case errors.Is(err, services.ErrUpstreamAuth):
		out.Status, out.Message = http.StatusUnauthorized, MsgUnauthorized
	case errors.Is(err, services.ErrNotFound):
		out.Status, out.Message = http.StatusNotFound, MsgNotFound
	case errors.Is(err, services.ErrQuota):
		out.Status, out.Message = http.StatusTooManyRequests, MsgQuota
	}
	return out
}
