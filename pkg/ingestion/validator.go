package ingestion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/medifusion/platform/pkg/common/models"
)

var (
	errInvalidSource = errors.New("invalid source")
	errNoDocuments   = errors.New("no documents in request")
	errMissingName   = errors.New("extracted record missing name")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type Validator struct {
	allowedSources map[string]struct{}
}

func NewValidator(sources []string) *Validator {
	vs := make(map[string]struct{})
	for _, src := range sources {
		if trimmed := strings.TrimSpace(strings.ToLower(src)); trimmed != "" {
			vs[trimmed] = struct{}{}
		}
	}
	return &Validator{allowedSources: vs}
}

func (v *Validator) Validate(req models.IngestRequest) error {
	if v == nil {
		return ValidationError{reason: errors.New("validator not initialised")}
	}

	source := strings.TrimSpace(strings.ToLower(req.Source))
	if source == "" {
		return ValidationError{reason: fmt.Errorf("source required: %w", errInvalidSource)}
	}
	if len(v.allowedSources) > 0 {
		if _, ok := v.allowedSources[source]; !ok {
			return ValidationError{reason: fmt.Errorf("source '%s' not allowed: %w", source, errInvalidSource)}
		}
	}

	if len(req.Documents) == 0 {
		return ValidationError{reason: errNoDocuments}
	}
	for i, doc := range req.Documents {
		if strings.TrimSpace(doc.Record.Name) == "" {
			return ValidationError{reason: fmt.Errorf("document %d (%s): %w", i, doc.Filename, errMissingName)}
		}
	}

	return nil
}
