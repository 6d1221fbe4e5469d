package omf

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeField is the property name conventionally used as the dynamic
// type index for time-series values.
const TimeField = "Time"

// LinkTypeID is the reserved type ID for link records, which position
// assets and associate streams with them.
const LinkTypeID = "__Link"

// Container binds a stream ID to a registered type.
type Container struct {
	ID     string `json:"id"`
	TypeID string `json:"type_id"`
}

// StreamValues carries one or more value records for a single stream.
type StreamValues struct {
	StreamID string           `json:"stream_id"`
	Values   []map[string]any `json:"values"`
}

// Sample builds a value record indexed by the given timestamp. The
// fields map is copied; the timestamp is rendered as RFC 3339 UTC under
// the TimeField key.
func Sample(t time.Time, fields map[string]any) map[string]any {
	record := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		record[k] = v
	}
	record[TimeField] = t.UTC().Format(time.RFC3339Nano)
	return record
}

// Classification distinguishes dynamic (time-series) types from static
// (asset attribute) types.
type Classification string

const (
	// ClassificationDynamic marks a type whose instances are streams of
	// timestamped values.
	ClassificationDynamic Classification = "dynamic"
	// ClassificationStatic marks a type whose instances are asset
	// attribute sets.
	ClassificationStatic Classification = "static"
)

// Property describes one property of a type definition.
type Property struct {
	// Name is the property key within the type; not serialized itself.
	Name string `json:"-"`
	// Type is the JSON schema type ("number", "string", ...).
	Type string `json:"type"`
	// Format refines the type (e.g. "date-time").
	Format string `json:"format,omitempty"`
	// IsIndex marks the property used to index instances.
	IsIndex bool `json:"isindex,omitempty"`
}

// NumberProperty returns a numeric property with the given name.
func NumberProperty(name string) Property {
	return Property{Name: name, Type: "number"}
}

// StringProperty returns a string property with the given name.
func StringProperty(name string) Property {
	return Property{Name: name, Type: "string"}
}

// IntegerProperty returns an integer property with the given name.
func IntegerProperty(name string) Property {
	return Property{Name: name, Type: "integer"}
}

// BooleanProperty returns a boolean property with the given name.
func BooleanProperty(name string) Property {
	return Property{Name: name, Type: "boolean"}
}

// TimeIndexProperty returns the timestamp index property used by
// dynamic types.
func TimeIndexProperty(name string) Property {
	return Property{Name: name, Type: "string", Format: "date-time", IsIndex: true}
}

// StringIndexProperty returns a string index property used by static
// types.
func StringIndexProperty(name string) Property {
	return Property{Name: name, Type: "string", IsIndex: true}
}

// Type is a builder for OMF type definition schemas, so callers do not
// have to hand-write the schema JSON.
type Type struct {
	ID             string
	Classification Classification
	Properties     []Property
}

// NewDynamicType returns a dynamic type with a TimeField index property
// followed by the given properties.
func NewDynamicType(id string, props ...Property) Type {
	return Type{
		ID:             id,
		Classification: ClassificationDynamic,
		Properties:     append([]Property{TimeIndexProperty(TimeField)}, props...),
	}
}

// NewStaticType returns a static type indexed by a "Name" string
// property, followed by the given properties.
func NewStaticType(id string, props ...Property) Type {
	return Type{
		ID:             id,
		Classification: ClassificationStatic,
		Properties:     append([]Property{StringIndexProperty("Name")}, props...),
	}
}

// MarshalJSON renders the type definition in the OMF schema shape.
func (t Type) MarshalJSON() ([]byte, error) {
	props := make(map[string]Property, len(t.Properties))
	for _, p := range t.Properties {
		if p.Name == "" {
			return nil, fmt.Errorf("omf: type %q has a property with no name", t.ID)
		}
		if _, exists := props[p.Name]; exists {
			return nil, fmt.Errorf("omf: type %q has duplicate property %q", t.ID, p.Name)
		}
		props[p.Name] = p
	}
	return json.Marshal(struct {
		ID             string              `json:"id"`
		ObjectType     string              `json:"type"`
		Classification Classification      `json:"classification"`
		Properties     map[string]Property `json:"properties"`
	}{
		ID:             t.ID,
		ObjectType:     "object",
		Classification: t.Classification,
		Properties:     props,
	})
}

// Raw returns the type definition as the raw schema JSON accepted by
// Client.CreateTypes.
func (t Type) Raw() (json.RawMessage, error) {
	return json.Marshal(t)
}

// AssetValues carries attribute records for instances of a static type.
// Sent as a Data message.
type AssetValues struct {
	TypeID string           `json:"type_id"`
	Values []map[string]any `json:"values"`
}

// LinkEnd identifies one end of a link: either an asset instance
// (TypeID + Index) or a stream (StreamID).
type LinkEnd struct {
	TypeID   string `json:"type_id,omitempty"`
	Index    string `json:"index,omitempty"`
	StreamID string `json:"stream_id,omitempty"`
}

// RootIndex is the reserved index for the root element an asset is
// positioned under.
const RootIndex = "_ROOT"

// Link relates a source asset to a target asset or stream. Links are
// sent as Data messages under the reserved LinkTypeID.
type Link struct {
	Source LinkEnd `json:"source"`
	Target LinkEnd `json:"target"`
}

// AssetLink returns a link positioning child under parent, both
// instances of the static type with the given ID.
func AssetLink(typeID, parentIndex, childIndex string) Link {
	return Link{
		Source: LinkEnd{TypeID: typeID, Index: parentIndex},
		Target: LinkEnd{TypeID: typeID, Index: childIndex},
	}
}

// StreamLink returns a link associating a stream with the asset
// instance it belongs to.
func StreamLink(typeID, assetIndex, streamID string) Link {
	return Link{
		Source: LinkEnd{TypeID: typeID, Index: assetIndex},
		Target: LinkEnd{StreamID: streamID},
	}
}

// linkValues is the wire wrapper for link records.
type linkValues struct {
	TypeID string `json:"type_id"`
	Values []Link `json:"values"`
}
