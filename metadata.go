package attributex

// MetaField selects one column of a MetaData row.
type MetaField int

const (
	MetaDefault MetaField = iota
	MetaMin
	MetaMax
)

func (f MetaField) String() string {
	switch f {
	case MetaMin:
		return "min"
	case MetaMax:
		return "max"
	default:
		return "default"
	}
}

// MetaData is one row of an attribute metadata table.
type MetaData struct {
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Default float64 `json:"default" yaml:"default"`
}

// Get returns the column selected by f.
func (m MetaData) Get(f MetaField) float64 {
	switch f {
	case MetaMin:
		return m.Min
	case MetaMax:
		return m.Max
	default:
		return m.Default
	}
}

// MetadataTable is a read-only lookup of attribute metadata keyed by field name.
type MetadataTable interface {
	Lookup(name string) (MetaData, bool)
}

// MapMetadata is an in-memory MetadataTable.
type MapMetadata map[string]MetaData

// Lookup implements MetadataTable.
func (m MapMetadata) Lookup(name string) (MetaData, bool) {
	md, ok := m[name]
	return md, ok
}
