package attributex

import "fmt"

// SourceType selects where a ValueSource gets its number from.
type SourceType int

const (
	// SourceConstant uses ValueSource.Value as is.
	SourceConstant SourceType = iota
	// SourceMetadata reads a column from the attribute metadata table.
	SourceMetadata
	// SourceAttribute reads the current value of another attribute.
	SourceAttribute
)

func (t SourceType) String() string {
	switch t {
	case SourceConstant:
		return "constant"
	case SourceMetadata:
		return "metadata"
	case SourceAttribute:
		return "attribute"
	default:
		return fmt.Sprintf("SourceType(%d)", int(t))
	}
}

// ParseSourceType is the inverse of SourceType.String.
func ParseSourceType(s string) (SourceType, error) {
	switch s {
	case "constant":
		return SourceConstant, nil
	case "metadata":
		return SourceMetadata, nil
	case "attribute":
		return SourceAttribute, nil
	default:
		return 0, fmt.Errorf("unknown value source type %q", s)
	}
}

// AttributeReader gives read access to current attribute values.
type AttributeReader interface {
	AttributeValue(attr Attribute) (float64, bool)
}

// SourceContext is what a ValueSource needs at read time. Attribute and Field
// select the metadata row and column for SourceMetadata.
type SourceContext struct {
	Values    AttributeReader
	Metadata  MetadataTable
	Attribute Attribute
	Field     MetaField
}

// ValueSource produces a float from a constant, a metadata table or another
// attribute.
type ValueSource struct {
	Type SourceType
	// Value is the constant for SourceConstant and the last successfully read
	// value for SourceAttribute.
	Value     float64
	Attribute Attribute
}

// Constant returns a SourceConstant source.
func Constant(v float64) ValueSource {
	return ValueSource{Type: SourceConstant, Value: v}
}

// FromAttribute returns a SourceAttribute source reading attr.
func FromAttribute(attr Attribute) ValueSource {
	return ValueSource{Type: SourceAttribute, Attribute: attr}
}

// FromMetadata returns a SourceMetadata source.
func FromMetadata() ValueSource {
	return ValueSource{Type: SourceMetadata}
}

// GetValue resolves the source.
//
// Attribute sources that cannot be resolved return the cached value (0 if never
// read). Metadata sources without a row return ErrMissingMetadata.
func (s *ValueSource) GetValue(ctx SourceContext) (float64, error) {
	switch s.Type {
	case SourceConstant:
		return s.Value, nil
	case SourceAttribute:
		if ctx.Values != nil {
			if v, ok := ctx.Values.AttributeValue(s.Attribute); ok {
				s.Value = v
			}
		}
		return s.Value, nil
	case SourceMetadata:
		if ctx.Metadata == nil {
			return 0, fmt.Errorf("%w: no metadata table for %q", ErrMissingMetadata, ctx.Attribute.Name)
		}
		md, ok := ctx.Metadata.Lookup(ctx.Attribute.Name)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingMetadata, ctx.Attribute.Name)
		}
		return md.Get(ctx.Field), nil
	default:
		return 0, fmt.Errorf("unknown value source type %v", s.Type)
	}
}

// DependsOn returns the attribute this source reads, if any.
func (s *ValueSource) DependsOn() (Attribute, bool) {
	if s.Type != SourceAttribute || !s.Attribute.IsValid() {
		return Attribute{}, false
	}
	return s.Attribute, true
}
