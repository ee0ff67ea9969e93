// Package apierr turns provider error replies into domain.ProviderError so
// the embedder and the answer service can tell rate limits and outages from
// permanent rejections.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// maxMessage bounds the body text kept when a reply has no error field.
const maxMessage = 512

// Do sends req and returns the body of a 2xx reply. Any other status comes
// back as a *domain.ProviderError.
func Do(client *http.Client, provider string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: send request: %w", provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, FromResponse(provider, resp, body)
	}
	return body, nil
}

// FromResponse builds the error for a reply with a non-2xx status. body is
// the already-read response body.
func FromResponse(provider string, resp *http.Response, body []byte) *domain.ProviderError {
	return &domain.ProviderError{
		Provider:   provider,
		Status:     resp.StatusCode,
		Message:    message(body, resp.Status),
		RetryAfter: retryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
}

// message extracts the provider's error text. OpenAI and Anthropic reply
// {"error": {"message": ...}}, Ollama and Qdrant {"error": "..."} or
// {"status": {"error": "..."}}.
func message(body []byte, fallback string) string {
	var reply struct {
		Error  json.RawMessage `json:"error"`
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if json.Unmarshal(body, &reply) == nil {
		var text string
		if json.Unmarshal(reply.Error, &text) == nil && text != "" {
			return text
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(reply.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		if reply.Status.Error != "" {
			return reply.Status.Error
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return fallback
	}
	if len(text) > maxMessage {
		text = text[:maxMessage] + "..."
	}
	return text
}

// retryAfter parses a Retry-After header given in seconds or as a date.
func retryAfter(header string, now time.Time) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// grpcStatus maps the gRPC codes Google APIs return to HTTP statuses.
var grpcStatus = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.FailedPrecondition: http.StatusBadRequest,
	codes.Unauthenticated:    http.StatusUnauthorized,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.NotFound:           http.StatusNotFound,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.Internal:           http.StatusInternalServerError,
	codes.Unknown:            http.StatusInternalServerError,
}

// FromGoogle converts an error from a Google API client. Errors that carry
// no API status are returned unchanged.
func FromGoogle(provider string, err error) error {
	// REST replies keep their headers, so Retry-After survives.
	var ge *googleapi.Error
	if errors.As(err, &ge) && ge.Code > 0 {
		msg := ge.Message
		if msg == "" {
			msg = ge.Error()
		}
		return &domain.ProviderError{
			Provider:   provider,
			Status:     ge.Code,
			Message:    msg,
			RetryAfter: retryAfter(ge.Header.Get("Retry-After"), time.Now()),
		}
	}

	var ae *apierror.APIError
	if !errors.As(err, &ae) {
		converted, ok := apierror.FromError(err)
		if !ok {
			return err
		}
		ae = converted
	}

	pe := &domain.ProviderError{Provider: provider, Status: ae.HTTPCode(), Message: ae.Error()}
	if st := ae.GRPCStatus(); st != nil {
		pe.Message = st.Message()
		if pe.Status <= 0 {
			pe.Status = grpcStatus[st.Code()]
		}
	}
	if pe.Status <= 0 {
		return err
	}
	if ri := ae.Details().RetryInfo; ri != nil && ri.GetRetryDelay() != nil {
		pe.RetryAfter = ri.GetRetryDelay().AsDuration()
	}
	return pe
}
