package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates the configuration using struct tags plus custom
// cross-field rules. Returns an error with actionable messages.
func Validate(c *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.RegisterValidation("model_arn", validateModelARN); err != nil {
		return fmt.Errorf("failed to register model_arn validator: %w", err)
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	// The model ARN default is synthesized, so tag validation cannot cover
	// a user-supplied bare model id.
	if !looksLikeModelARN(c.ModelARN) {
		return fmt.Errorf("config validation failed: model_arn %q is not a Bedrock model ARN", c.ModelARN)
	}

	return nil
}

// validateModelARN is the tag form of looksLikeModelARN for nested use.
func validateModelARN(fl validator.FieldLevel) bool {
	return looksLikeModelARN(fl.Field().String())
}

// looksLikeModelARN accepts foundation-model and inference-profile ARNs.
func looksLikeModelARN(arn string) bool {
	return strings.HasPrefix(arn, "arn:aws:bedrock:") && strings.Contains(arn, "/")
}

// formatValidationErrors converts validator errors into one readable message.
func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation failed: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q validation", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
}
