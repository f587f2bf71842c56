package s3

import (
	"fmt"
	"strings"
	"time"

	"github.com/gostratum/diskx"
)

// maxDeleteBatch is the per-request key limit of DeleteObjects
const maxDeleteBatch = 1000

// Config holds the s3 driver settings decoded from disk options
type Config struct {
	// Bucket is the target bucket
	Bucket string `mapstructure:"bucket" validate:"required"`

	// Region is the AWS region
	Region string `mapstructure:"region" default:"us-east-1"`

	// Static credentials. Unset falls back to the SDK default chain.
	Key          string `mapstructure:"key"`
	Secret       string `mapstructure:"secret"`
	SessionToken string `mapstructure:"session_token"`

	// Profile selects a shared config profile
	Profile string `mapstructure:"profile"`

	// RoleARN enables STS AssumeRole on top of the resolved credentials
	RoleARN    string `mapstructure:"role_arn"`
	ExternalID string `mapstructure:"external_id"`

	// Prefix namespaces every key of the disk
	Prefix string `mapstructure:"prefix"`

	// URL is the base URL returned by Storage.URL
	URL string `mapstructure:"url"`

	// Endpoint is a custom S3-compatible endpoint (MinIO, LocalStack)
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`

	// RequestTimeout bounds every HTTP request
	RequestTimeout time.Duration `mapstructure:"request_timeout" default:"30s"`

	// MaxRetries is the number of transport retries. Zero disables them.
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial" default:"200ms"`
	BackoffMax     time.Duration `mapstructure:"backoff_max" default:"5s"`

	// PageSize bounds each ListObjectsV2 response
	PageSize int32 `mapstructure:"page_size" default:"1000" validate:"gte=1,lte=1000"`
}

// ConfigFromDisk decodes and validates an "s3" disk configuration
func ConfigFromDisk(d diskx.DiskConfig) (*Config, error) {
	cfg := &Config{}
	if err := diskx.DecodeOptions(d, cfg); err != nil {
		return nil, err
	}
	cfg = cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Sanitize trims whitespace and normalizes the prefix, returning a copy
func (c *Config) Sanitize() *Config {
	out := *c
	out.Bucket = strings.TrimSpace(out.Bucket)
	out.Region = strings.TrimSpace(out.Region)
	out.Endpoint = strings.TrimSpace(out.Endpoint)
	out.Prefix = NewKeyCodec(strings.TrimSpace(out.Prefix)).Prefix()
	return &out
}

// Validate checks the settings that struct tags cannot express
func (c *Config) Validate() error {
	var errs []string

	if c.Bucket == "" {
		errs = append(errs, "bucket cannot be empty")
	} else if err := validateBucketName(c.Bucket); err != nil {
		errs = append(errs, fmt.Sprintf("invalid bucket name: %v", err))
	}

	if c.Region == "" && c.Endpoint == "" {
		errs = append(errs, "region is required when endpoint is not specified")
	}

	if (c.Key == "") != (c.Secret == "") {
		errs = append(errs, "key and secret must be set together")
	}

	if c.RequestTimeout <= 0 {
		errs = append(errs, "request_timeout must be positive")
	}
	if c.RequestTimeout > 10*time.Minute {
		errs = append(errs, "request_timeout should not exceed 10 minutes")
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		errs = append(errs, "max_retries must be between 0 and 10")
	}
	if c.MaxRetries > 0 {
		if c.BackoffInitial <= 0 {
			errs = append(errs, "backoff_initial must be positive")
		}
		if c.BackoffMax <= c.BackoffInitial {
			errs = append(errs, "backoff_max must be greater than backoff_initial")
		}
	}

	if c.PageSize < 1 || c.PageSize > maxDeleteBatch {
		errs = append(errs, "page_size must be between 1 and 1000")
	}

	if c.Endpoint != "" {
		if err := validateEndpoint(c.Endpoint); err != nil {
			errs = append(errs, fmt.Sprintf("invalid endpoint: %v", err))
		}
	}

	if c.RoleARN != "" && !isPlausibleRoleARN(c.RoleARN) {
		errs = append(errs, "role_arn looks invalid: must be a valid IAM role ARN (e.g., arn:aws:iam::123456789012:role/RoleName)")
	}

	if len(errs) > 0 {
		return &diskx.ValidationError{Field: "s3", Message: strings.Join(errs, "; ")}
	}
	return nil
}

// EndpointURL returns the endpoint with a scheme, defaulting to https
func (c *Config) EndpointURL() string {
	if c.Endpoint == "" {
		return ""
	}
	if strings.HasPrefix(c.Endpoint, "http://") || strings.HasPrefix(c.Endpoint, "https://") {
		return c.Endpoint
	}
	return "https://" + c.Endpoint
}

// BaseURL returns the configured URL or the virtual-hosted bucket URL,
// always ending in "/"
func (c *Config) BaseURL() string {
	base := c.URL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", c.Bucket, c.Region)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// isPlausibleRoleARN performs a light-weight validation of an IAM role ARN
func isPlausibleRoleARN(arn string) bool {
	// arn:partition:service:region:account-id:resource
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 || parts[0] != "arn" || parts[2] != "iam" {
		return false
	}
	acct := parts[4]
	if acct == "" {
		return false
	}
	for _, r := range acct {
		if r < '0' || r > '9' {
			return false
		}
	}
	return strings.HasPrefix(parts[5], "role/")
}

// validateBucketName validates S3 bucket naming rules
func validateBucketName(bucket string) error {
	if len(bucket) < 3 || len(bucket) > 63 {
		return fmt.Errorf("bucket name must be between 3 and 63 characters")
	}

	if strings.HasPrefix(bucket, "-") || strings.HasSuffix(bucket, "-") {
		return fmt.Errorf("bucket name cannot start or end with a hyphen")
	}

	if strings.HasPrefix(bucket, ".") || strings.HasSuffix(bucket, ".") {
		return fmt.Errorf("bucket name cannot start or end with a period")
	}

	if strings.Contains(bucket, "..") {
		return fmt.Errorf("bucket name cannot contain consecutive periods")
	}

	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return fmt.Errorf("bucket name contains invalid character: %c", char)
		}
	}

	parts := strings.Split(bucket, ".")
	if len(parts) == 4 {
		allNumeric := true
		for _, part := range parts {
			if !isNumeric(part) {
				allNumeric = false
				break
			}
		}
		if allNumeric {
			return fmt.Errorf("bucket name cannot be formatted as an IP address")
		}
	}

	return nil
}

func isValidBucketChar(char rune) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= '0' && char <= '9') ||
		char == '-' || char == '.'
}

func isNumeric(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, char := range s {
		if char < '0' || char > '9' {
			return false
		}
	}
	return true
}

// validateEndpoint validates the endpoint URL format
func validateEndpoint(endpoint string) error {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return nil
	}
	if strings.Contains(endpoint, "://") {
		return fmt.Errorf("endpoint protocol must be http or https")
	}
	if strings.Contains(endpoint, " ") {
		return fmt.Errorf("endpoint cannot contain spaces")
	}
	return nil
}
