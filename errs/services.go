package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// External service errors
var (
	ErrUploadFailed        = errors.New("image upload failed")
	ErrConfigInvalid       = errors.New("configuration invalid")
	ErrEventPublishFailure = errors.New("event publish failed")
)

// NewUploadError wraps a media host failure. Handlers surface it as a 500.
func NewUploadError(provider string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrUploadFailed,
		Details:    fmt.Sprintf("%s rejected the upload", provider),
		Cause:      cause,
	}
}

func NewConfigError(configName string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrConfigInvalid,
		Details:    fmt.Sprintf("Invalid configuration for %s", configName),
		Field:      configName,
		Cause:      cause,
	}
}

func NewEventPublishError(subject string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrEventPublishFailure,
		Details:    fmt.Sprintf("Could not publish to %s", subject),
		Cause:      cause,
	}
}

func IsUploadError(err error) bool {
	return errors.Is(err, ErrUploadFailed)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigInvalid)
}
