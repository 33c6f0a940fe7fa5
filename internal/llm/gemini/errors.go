package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"google.golang.org/api/googleapi"

	"lecturetutor/internal/domain"
)

// Classify maps a provider error onto domain.ErrQuota or domain.ErrUnavailable.
// Errors already carrying one of those sentinels are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrQuota) || errors.Is(err, domain.ErrUnavailable) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", domain.ErrQuota, err)
	}
	if strings.Contains(strings.ToUpper(err.Error()), "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("%w: %w", domain.ErrQuota, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
}
