package attributex

// Host collaborator interfaces.
// The engine never inspects host objects directly; everything goes through these.

// ClassHandle is a resolved host class.
type ClassHandle interface {
	// Name is the short class name used in diagnostics, e.g. "HealthSet".
	Name() string
	// Locator is the full path the class was resolved from.
	Locator() string
}

// FieldHandle is a resolved field on a ClassHandle.
type FieldHandle interface {
	Name() string
	IsNumeric() bool
}

// Reflector resolves classes and fields by name and reads/writes numeric fields
// on live instances.
type Reflector interface {
	ResolveClass(locator string) (ClassHandle, bool)
	FindField(class ClassHandle, name string) (FieldHandle, bool)
	ReadNumeric(instance any, field FieldHandle) (float64, error)
	WriteNumeric(instance any, field FieldHandle, value float64) error
}

// ObjectRef is a non-owning reference to a host instance.
// Get reports false once the instance has been destroyed.
type ObjectRef interface {
	Get() (any, bool)
}

// InstanceFinder looks up the instance of class owned by owner.
type InstanceFinder interface {
	FindComponentInstance(owner any, class ClassHandle) (ObjectRef, bool)
}

// IsAttributeType reports whether field can back an attribute.
func IsAttributeType(field FieldHandle) bool {
	return field != nil && field.IsNumeric()
}

// IsValidAttribute resolves attr against r without caching anything.
// It tolerates classes that are not loaded and fields that were renamed.
func IsValidAttribute(r Reflector, attr Attribute) bool {
	ref := NewRef(r, attr)
	return ref.IsValidSafe()
}
