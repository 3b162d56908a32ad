package models

// ReferenceEntityType scopes a reference number sequence.
type ReferenceEntityType string

const (
	ReferenceGrievance ReferenceEntityType = "GRIEVANCE"
	ReferenceProject   ReferenceEntityType = "PROJECT"
)

// Prefix is the human-facing reference prefix, or "" for unknown types.
func (t ReferenceEntityType) Prefix() string {
	switch t {
	case ReferenceGrievance:
		return "GRV"
	case ReferenceProject:
		return "PRJ"
	default:
		return ""
	}
}
