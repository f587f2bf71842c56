package diskx

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Message)
}

// Unwrap makes every ValidationError match ErrInvalidConfig
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// KnownDriver reports whether driver names a supported backend
func KnownDriver(driver string) bool {
	switch driver {
	case DriverLocal, DriverS3, DriverAWSS3:
		return true
	}
	return false
}

// ValidateConfig checks the disk set and the default name
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return &ValidationError{Field: "config", Message: "configuration cannot be nil"}
	}

	var errs []string

	for _, name := range cfg.Names() {
		d := cfg.Disks[name]
		if strings.TrimSpace(name) == "" {
			errs = append(errs, "disk name cannot be empty")
			continue
		}
		if d.Driver == "" {
			errs = append(errs, fmt.Sprintf("disk %q: driver cannot be empty", name))
		} else if !KnownDriver(d.Driver) {
			errs = append(errs, fmt.Sprintf("disk %q: unsupported driver %q", name, d.Driver))
		}
	}

	if cfg.Default != "" {
		if _, ok := cfg.Disks[cfg.Default]; !ok {
			errs = append(errs, fmt.Sprintf("default disk %q is not configured", cfg.Default))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "config",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// DecodeOptions fills out (a pointer to a settings struct) from the disk
// options. Struct `default` tags are applied first, empty option values are
// treated as unset, strings are weakly converted (durations, bools, ints,
// octal file modes) and `validate` tags are checked last.
func DecodeOptions(d DiskConfig, out any) error {
	if err := defaults.Set(out); err != nil {
		return &ValidationError{Field: "options", Message: err.Error()}
	}

	input := make(map[string]any, len(d.Options))
	for k, v := range d.Options {
		if v != "" {
			input[k] = v
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToFileModeHook,
		),
	})
	if err != nil {
		return &ValidationError{Field: "options", Message: err.Error()}
	}
	if err := dec.Decode(input); err != nil {
		return &ValidationError{Field: "options", Message: err.Error()}
	}

	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return &ValidationError{Field: verrs[0].Field(), Message: strings.Join(msgs, "; ")}
		}
		return &ValidationError{Field: "options", Message: err.Error()}
	}

	return nil
}

var fileModeType = reflect.TypeOf(os.FileMode(0))

// stringToFileModeHook parses octal strings such as "0755" into os.FileMode
func stringToFileModeHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != fileModeType {
		return data, nil
	}
	v, err := strconv.ParseUint(data.(string), 8, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid file mode %q: %w", data, err)
	}
	return os.FileMode(v), nil
}
