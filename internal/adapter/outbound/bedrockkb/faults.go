package bedrockkb

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/Knowledge-Gate/kbgate/internal/domain/kb"
)

// classify maps an AWS API error onto the domain fault taxonomy. The error
// code is matched rather than the concrete type so the same function
// serves both Bedrock clients.
func classify(op string, err error) error {
	kind := kb.FaultUnknown
	message := err.Error()

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		message = apiErr.ErrorMessage()
		switch apiErr.ErrorCode() {
		case "ValidationException":
			kind = kb.FaultInvalid
		case "ResourceNotFoundException":
			kind = kb.FaultNotFound
		case "ThrottlingException":
			kind = kb.FaultThrottled
		}
	}

	return &kb.Fault{
		Kind:    kind,
		Message: message,
		Err:     fmt.Errorf("%s: %w", op, err),
	}
}
