package llm

import (
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrRateLimited means the provider asked us to slow down.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrQuotaExceeded means the account has no quota left; retrying will not help.
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	// ErrImagesUnsupported is returned by providers that cannot take image input.
	ErrImagesUnsupported = errors.New("provider does not accept images")
)

// IsRetryable reports whether another attempt at the same provider may succeed.
func IsRetryable(err error) bool {
	return !errors.Is(err, ErrQuotaExceeded) && !errors.Is(err, ErrImagesUnsupported)
}

// IsDegraded reports whether the error is a capacity problem rather than a fault.
func IsDegraded(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrQuotaExceeded)
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if isQuotaCode(apiErr.Code) || apiErr.Type == "insufficient_quota" {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return err
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}

func isQuotaCode(code any) bool {
	s, ok := code.(string)
	return ok && s == "insufficient_quota"
}

func classifyHTTPStatus(provider string, status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s: %s", ErrRateLimited, provider, body)
	case status == http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s: %s", ErrQuotaExceeded, provider, body)
	default:
		return fmt.Errorf("%s request failed (status %d): %s", provider, status, body)
	}
}
