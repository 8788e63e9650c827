package matching

import (
	"strings"

	"github.com/medifusion/platform/pkg/common/models"
)

// Signature flattens a record's identity-bearing fields into the single
// comparison string used as the embedding input. Field order is fixed, empty
// fields contribute nothing, and identical input always yields identical
// output.
func Signature(rec models.IncomingRecord) string {
	fields := []string{
		rec.Name,
		rec.DOB,
		rec.SSN,
		rec.InsuranceNumber,
		strings.Join(rec.MedicalConditions, " "),
		rec.Address,
		rec.Phone,
		rec.Email,
		rec.Gender,
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}
