package attributex

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// noneClassName is rendered in place of a class that cannot be resolved.
const noneClassName = "None"

// Attribute identifies a numeric field on a class by class locator and field
// name. It is comparable and safe to use as a map key: equality never depends
// on whether the class is currently loaded.
type Attribute struct {
	ClassPath string
	Name      string
}

// NewAttribute returns the attribute named name on the class at classPath.
func NewAttribute(classPath, name string) Attribute {
	return Attribute{ClassPath: classPath, Name: name}
}

// IsValid reports structural validity only: both components are non-empty.
func (a Attribute) IsValid() bool {
	return a.ClassPath != "" && a.Name != ""
}

// String returns "<ClassPath>.<Name>", including for invalid identities.
func (a Attribute) String() string {
	return a.ClassPath + "." + a.Name
}

// MarshalYAML encodes the attribute as its export path.
func (a Attribute) MarshalYAML() (any, error) {
	return ExportToString(a), nil
}

// UnmarshalYAML decodes an export path produced by MarshalYAML.
func (a *Attribute) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	attr, err := ImportFromString(s)
	if err != nil {
		return err
	}
	*a = attr
	return nil
}

// ExportToString converts attr to "<ClassPath>.<Name>". Unresolvable
// attributes export the same way; resolution is never attempted. A
// structurally invalid attribute exports as "None", which imports back as the
// zero Attribute.
func ExportToString(attr Attribute) string {
	if !attr.IsValid() {
		return noneClassName
	}
	return attr.ClassPath + "." + attr.Name
}

// ImportFromString reverses ExportToString. The field name is everything after
// the last '.', so class locators may themselves contain dots.
func ImportFromString(s string) (Attribute, error) {
	s = strings.TrimSpace(s)
	if s == noneClassName {
		return Attribute{}, nil
	}
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return Attribute{}, fmt.Errorf("%w: %q", ErrInvalidPath, s)
	}
	return Attribute{ClassPath: s[:i], Name: s[i+1:]}, nil
}

// Ref is a rename/reload tolerant reference to an attribute. The identity is
// fixed at construction; the resolved class and field handles are a cache that
// is filled on demand and cleared whenever resolution fails.
//
// A Ref is not safe for concurrent use.
type Ref struct {
	attr      Attribute
	reflector Reflector

	class ClassHandle
	field FieldHandle
}

// NewRef returns an unresolved reference to attr.
func NewRef(r Reflector, attr Attribute) *Ref {
	return &Ref{attr: attr, reflector: r}
}

// NewRefFromPath returns an unresolved reference to field name on classPath.
func NewRefFromPath(r Reflector, classPath, name string) *Ref {
	return NewRef(r, Attribute{ClassPath: classPath, Name: name})
}

// NewRefFromField returns a reference built from already resolved handles.
func NewRefFromField(r Reflector, class ClassHandle, field FieldHandle) *Ref {
	ref := &Ref{reflector: r}
	if class == nil || field == nil {
		return ref
	}
	ref.attr = Attribute{ClassPath: class.Locator(), Name: field.Name()}
	ref.class = class
	if IsAttributeType(field) {
		ref.field = field
	}
	return ref
}

// IsValidFast reports structural validity without resolving anything.
func (r *Ref) IsValidFast() bool {
	return r.attr.IsValid()
}

// IsValidSafe re-resolves the reference and reports whether the field exists
// and is numeric right now.
func (r *Ref) IsValidSafe() bool {
	return r.UpdateCache()
}

// Attribute returns the plain identity. It never fails; resolution is left to
// the point of use.
func (r *Ref) Attribute() Attribute {
	return r.attr
}

// Field returns the resolved field handle, resolving first.
func (r *Ref) Field() (FieldHandle, bool) {
	if !r.UpdateCache() {
		return nil, false
	}
	return r.field, true
}

// ToPathString returns "<ClassName>.<FieldName>", with "None" for a class
// that cannot be resolved.
func (r *Ref) ToPathString() string {
	return r.ClassName() + "." + r.AttributeName()
}

// ClassName returns the short class name or "None".
func (r *Ref) ClassName() string {
	r.UpdateCache()
	if r.class == nil {
		return noneClassName
	}
	return r.class.Name()
}

// AttributeName returns the field name.
func (r *Ref) AttributeName() string {
	return r.attr.Name
}

// ClassPath returns the class locator.
func (r *Ref) ClassPath() string {
	return r.attr.ClassPath
}

// UpdateCache resolves class and field and stores the handles. It is the only
// mutator of the cache and reports whether the field resolved to a numeric
// field. Stale handles are dropped, never kept.
func (r *Ref) UpdateCache() bool {
	r.class, r.field = nil, nil
	if !r.IsValidFast() || r.reflector == nil {
		return false
	}
	class, ok := r.reflector.ResolveClass(r.attr.ClassPath)
	if !ok || class == nil {
		return false
	}
	r.class = class
	field, ok := r.reflector.FindField(class, r.attr.Name)
	if !ok || !IsAttributeType(field) {
		return false
	}
	r.field = field
	return true
}
