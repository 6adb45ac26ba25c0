package model

// EntityType is a label from the closed NER label set.
type EntityType string

const (
	EntityTypePerson    EntityType = "PERSON"
	EntityTypeOrg       EntityType = "ORG"
	EntityTypeGPE       EntityType = "GPE"
	EntityTypeDate      EntityType = "DATE"
	EntityTypeEvent     EntityType = "EVENT"
	EntityTypeWorkOfArt EntityType = "WORK_OF_ART"
)

// EntityTypes lists every accepted label in a fixed order.
var EntityTypes = []EntityType{
	EntityTypePerson,
	EntityTypeOrg,
	EntityTypeGPE,
	EntityTypeDate,
	EntityTypeEvent,
	EntityTypeWorkOfArt,
}

// IsEntityType reports whether label belongs to the closed label set.
func IsEntityType(label string) bool {
	for _, t := range EntityTypes {
		if string(t) == label {
			return true
		}
	}
	return false
}
