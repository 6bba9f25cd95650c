package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the limits applied to cloud API calls.
// The installer subprocess itself is never bounded.
type Timeouts struct {
	APICall           time.Duration // Timeout for a single cloud or DNS API call
	Delete            time.Duration // Timeout for releasing one cloud resource
	ImageDownload     time.Duration // Timeout for fetching a boot image
	ImageUpload       time.Duration // Timeout for uploading a boot image
	RetryMaxAttempts  int           // Maximum number of retry attempts for locked resources
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - OSIA_TIMEOUT_API_CALL (default: 2m)
//   - OSIA_TIMEOUT_DELETE (default: 5m)
//   - OSIA_TIMEOUT_IMAGE_DOWNLOAD (default: 30m)
//   - OSIA_TIMEOUT_IMAGE_UPLOAD (default: 30m)
//   - OSIA_RETRY_MAX_ATTEMPTS (default: 5)
//   - OSIA_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		APICall:           parseDuration("OSIA_TIMEOUT_API_CALL", 2*time.Minute),
		Delete:            parseDuration("OSIA_TIMEOUT_DELETE", 5*time.Minute),
		ImageDownload:     parseDuration("OSIA_TIMEOUT_IMAGE_DOWNLOAD", 30*time.Minute),
		ImageUpload:       parseDuration("OSIA_TIMEOUT_IMAGE_UPLOAD", 30*time.Minute),
		RetryMaxAttempts:  parseInt("OSIA_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("OSIA_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
