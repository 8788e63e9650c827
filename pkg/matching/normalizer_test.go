package matching

import (
	"testing"

	"github.com/medifusion/platform/pkg/common/models"
)

func TestSignatureSkipsEmptyFields(t *testing.T) {
	rec := models.IncomingRecord{
		Name:              "Jane Doe",
		DOB:               "1975-03-02",
		MedicalConditions: []string{"diabetes", "hypertension"},
		Email:             "jane@example.com",
	}

	got := Signature(rec)
	want := "Jane Doe 1975-03-02 diabetes hypertension jane@example.com"
	if got != want {
		t.Fatalf("signature mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestSignatureStable(t *testing.T) {
	rec := models.IncomingRecord{
		Name:            "Jane Doe",
		SSN:             "987-65-4321",
		InsuranceNumber: "INS-22",
	}

	first := Signature(rec)
	for i := 0; i < 5; i++ {
		if Signature(rec) != first {
			t.Fatal("expected identical signatures for identical input")
		}
	}
}

func TestSignatureNameOnly(t *testing.T) {
	if got := Signature(models.IncomingRecord{Name: "Solo Name"}); got != "Solo Name" {
		t.Fatalf("expected bare name, got %q", got)
	}
}
