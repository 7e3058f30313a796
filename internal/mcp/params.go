package mcp

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func argValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			switch name {
			case "-":
				return ""
			case "":
				return field.Name
			}
			return name
		})
	})
	return validate
}

// Page carries the pagination arguments shared by list tools. Embed it in a
// parameter struct.
type Page struct {
	MaxResults int    `json:"maxResults" validate:"omitempty,min=1,max=100"`
	NextToken  string `json:"nextToken"`
}

// Limit returns MaxResults, or def when unset.
func (p Page) Limit(def int32) int32 {
	if p.MaxResults <= 0 {
		return def
	}
	return int32(p.MaxResults)
}

// DecodeArgs decodes raw tool arguments into dst, a pointer to the tool's
// parameter struct, and runs its `validate` tags. Field names follow the
// struct's json tags. Unknown keys are rejected.
func DecodeArgs(args map[string]any, dst any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Squash:           true,
	})
	if err != nil {
		return fmt.Errorf("build argument decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return Invalid("invalid arguments: %v", err)
	}
	if err := argValidator().Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return Invalid("%s", describeFieldErrors(fieldErrs))
		}
		return Invalid("invalid arguments: %v", err)
	}
	return nil
}

func describeFieldErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %v", fe.Field(), fe.Param(), fe.Value()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "startswith":
			msgs = append(msgs, fmt.Sprintf("%s must start with %q", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// ParseTimeArg parses an optional RFC 3339 timestamp argument.
func ParseTimeArg(name, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, Invalid("%s must be an RFC 3339 timestamp (e.g. 2024-01-02T15:04:05Z): %v", name, err)
	}
	parsed = parsed.UTC()
	return &parsed, nil
}
