// Package graph turns per-chunk character extractions into one undirected
// character graph.
package graph

// DefaultEntityType is used when the model leaves the type of an entity out.
const DefaultEntityType = "Person"

// Entity is a character or other named thing found in a chunk. Entities are
// identified by Name.
type Entity struct {
	Name        string `json:"name" jsonschema_description:"Name of the character or entity"`
	Type        string `json:"type" jsonschema_description:"Type of the entity (e.g., Person, Location, Organization)"`
	Description string `json:"description" jsonschema_description:"Brief description of the entity based on the text"`
}

// Relationship links two entities by name. Direction is not significant for
// identity: (a, b) and (b, a) are the same relationship.
type Relationship struct {
	Source      string `json:"source" jsonschema_description:"Name of the source entity"`
	Target      string `json:"target" jsonschema_description:"Name of the target entity"`
	Type        string `json:"type" jsonschema_description:"Type of relationship (e.g., friend, enemy, family, colleague)"`
	Description string `json:"description" jsonschema_description:"Brief description of the relationship"`
}

// ExtractionResult is what the model found in one chunk. Both lists may be
// empty.
type ExtractionResult struct {
	Entities      []Entity       `json:"entities" jsonschema_description:"Characters and entities found in the text"`
	Relationships []Relationship `json:"relationships" jsonschema_description:"Relationships between the entities found in the text"`
}

// Empty reports whether the result carries neither entities nor relationships.
func (r ExtractionResult) Empty() bool {
	return len(r.Entities) == 0 && len(r.Relationships) == 0
}

// Node is a merged entity. Nodes first created as a relationship endpoint
// keep an empty Type.
type Node struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Group       int    `json:"group"`
}

// Edge is a merged relationship. Weight counts how many relationship records
// were seen for the pair.
type Edge struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Weight      int    `json:"weight"`
}
