package ingestion

import (
	"errors"
	"testing"

	"github.com/medifusion/platform/pkg/common/models"
)

func validRequest() models.IngestRequest {
	return models.IngestRequest{
		Source: "hospital",
		Documents: []models.ExtractedDocument{
			{Filename: "admission.pdf", Record: models.IncomingRecord{Name: "Jane Doe"}},
		},
	}
}

func TestValidatorAcceptsKnownSource(t *testing.T) {
	v := NewValidator([]string{"hospital", "lab"})
	if err := v.Validate(validRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidatorSourceIsCaseInsensitive(t *testing.T) {
	v := NewValidator([]string{"Hospital"})
	req := validRequest()
	req.Source = "HOSPITAL"
	if err := v.Validate(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidatorRejectsUnknownSource(t *testing.T) {
	v := NewValidator([]string{"hospital"})
	req := validRequest()
	req.Source = "pharmacy"

	err := v.Validate(req)
	if err == nil {
		t.Fatal("expected rejection for unknown source")
	}
	if !IsValidationError(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if !errors.Is(err, errInvalidSource) {
		t.Fatalf("expected errInvalidSource, got %v", err)
	}
}

func TestValidatorRejectsEmptyDocuments(t *testing.T) {
	v := NewValidator([]string{"hospital"})
	req := validRequest()
	req.Documents = nil

	if err := v.Validate(req); !errors.Is(err, errNoDocuments) {
		t.Fatalf("expected errNoDocuments, got %v", err)
	}
}

func TestValidatorRejectsRecordWithoutName(t *testing.T) {
	v := NewValidator([]string{"hospital"})
	req := validRequest()
	req.Documents = append(req.Documents, models.ExtractedDocument{
		Filename: "blank.pdf",
		Record:   models.IncomingRecord{Name: "   "},
	})

	if err := v.Validate(req); !errors.Is(err, errMissingName) {
		t.Fatalf("expected errMissingName, got %v", err)
	}
}

func TestValidatorEmptyAllowListAcceptsAnySource(t *testing.T) {
	v := NewValidator(nil)
	req := validRequest()
	req.Source = "anything"
	if err := v.Validate(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
