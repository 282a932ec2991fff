// Package hostreflect is a small host object model built on Go reflection.
// It implements attributex.Reflector and attributex.InstanceFinder so the
// engine can run without a game engine behind it: classes are Go struct
// types (or declared attribute schemas) registered under a locator, and
// components are struct pointers attached to an owner.
package hostreflect

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/comalice/attributex"
)

var (
	ErrUnknownClass = errors.New("unknown class")
	ErrWrongType    = errors.New("instance does not match class")
)

// Class is a registered host class. Its locator changes on Rename; the
// fields never change after registration.
type Class struct {
	mu      sync.RWMutex
	locator string
	name    string

	typ    reflect.Type // nil for schema classes
	fields map[string]*Field
	order  []string
}

func (c *Class) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Class) Locator() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.locator
}

func (c *Class) relocate(locator string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locator, c.name = locator, ClassName(locator)
}

// Fields returns the field names in declaration order.
func (c *Class) Fields() []string {
	return append([]string(nil), c.order...)
}

// Field is a field of a registered class.
type Field struct {
	name  string
	owner reflect.Type // nil for schema fields
	index []int
	kind  reflect.Kind
}

func (f *Field) Name() string { return f.name }

// IsNumeric reports whether the field holds an integer or float.
func (f *Field) IsNumeric() bool {
	switch f.kind {
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

// Handle is a revocable reference to an attached component.
type Handle struct {
	mu    sync.RWMutex
	obj   any
	class *Class
	alive bool
}

// Get implements attributex.ObjectRef.
func (h *Handle) Get() (any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.alive {
		return nil, false
	}
	return h.obj, true
}

func (h *Handle) revoke() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alive = false
	h.obj = nil
}

// World holds the registered classes and the components attached to owners.
// It is safe for concurrent use.
type World struct {
	mu         sync.RWMutex
	classes    map[string]*Class
	components map[any][]*Handle
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{
		classes:    make(map[string]*Class),
		components: make(map[any][]*Handle),
	}
}

// ClassName derives the short class name from a locator: the part after the
// last '.' or '/'.
func ClassName(locator string) string {
	if i := strings.LastIndexAny(locator, "./"); i >= 0 {
		return locator[i+1:]
	}
	return locator
}

// RegisterType registers the struct type of sample (a struct or struct
// pointer) under locator. Exported fields become class fields.
func (w *World) RegisterType(locator string, sample any) (*Class, error) {
	t := reflect.TypeOf(sample)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("register %q: %T is not a struct", locator, sample)
	}
	c := &Class{
		locator: locator,
		name:    ClassName(locator),
		typ:     t,
		fields:  make(map[string]*Field),
	}
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		c.fields[sf.Name] = &Field{name: sf.Name, owner: t, index: sf.Index, kind: sf.Type.Kind()}
		c.order = append(c.order, sf.Name)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.classes[locator] = c
	return c, nil
}

// RegisterSchema registers a class made of float fields only. Container
// attribute classes are registered this way; instances are *attributex.Container.
func (w *World) RegisterSchema(locator string, fields ...string) *Class {
	c := &Class{
		locator: locator,
		name:    ClassName(locator),
		fields:  make(map[string]*Field, len(fields)),
	}
	for _, name := range fields {
		c.fields[name] = &Field{name: name, kind: reflect.Float64}
		c.order = append(c.order, name)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.classes[locator] = c
	return c
}

// RegisterContainer registers the attribute class of c.
func (w *World) RegisterContainer(c *attributex.Container) *Class {
	return w.RegisterSchema(c.Class(), c.Names()...)
}

// Unregister removes a class, as if its module was unloaded.
func (w *World) Unregister(locator string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.classes, locator)
}

// Rename moves a class to a new locator. References to the old locator stop
// resolving.
func (w *World) Rename(oldLocator, newLocator string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.classes[oldLocator]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClass, oldLocator)
	}
	delete(w.classes, oldLocator)
	c.relocate(newLocator)
	w.classes[newLocator] = c
	return nil
}

// Attach adds component to owner. component must be a pointer to a
// registered struct type.
func (w *World) Attach(owner, component any) (*Handle, error) {
	v := reflect.ValueOf(component)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return nil, fmt.Errorf("attach: %T is not a pointer", component)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	class := w.classOfLocked(v.Elem().Type())
	if class == nil {
		return nil, fmt.Errorf("attach: %w for %T", ErrUnknownClass, component)
	}
	h := &Handle{obj: component, class: class, alive: true}
	w.components[owner] = append(w.components[owner], h)
	return h, nil
}

// AttachContainer adds c to owner as an instance of its registered schema
// class, so bindings can target another container's attributes.
func (w *World) AttachContainer(owner any, c *attributex.Container) (*Handle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	class, ok := w.classes[c.Class()]
	if !ok || class.typ != nil {
		return nil, fmt.Errorf("attach: %w %q", ErrUnknownClass, c.Class())
	}
	h := &Handle{obj: c, class: class, alive: true}
	w.components[owner] = append(w.components[owner], h)
	return h, nil
}

// Destroy detaches the component behind h. Outstanding handles report it gone.
func (w *World) Destroy(h *Handle) {
	if h == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for owner, hs := range w.components {
		for i, candidate := range hs {
			if candidate != h {
				continue
			}
			w.components[owner] = append(hs[:i:i], hs[i+1:]...)
			if len(w.components[owner]) == 0 {
				delete(w.components, owner)
			}
		}
	}
	h.revoke()
}

func (w *World) classOfLocked(t reflect.Type) *Class {
	for _, c := range w.classes {
		if c.typ == t {
			return c
		}
	}
	return nil
}

// ResolveClass implements attributex.Reflector.
func (w *World) ResolveClass(locator string) (attributex.ClassHandle, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.classes[locator]
	if !ok {
		return nil, false
	}
	return c, true
}

// FindField implements attributex.Reflector.
func (w *World) FindField(class attributex.ClassHandle, name string) (attributex.FieldHandle, bool) {
	c, ok := class.(*Class)
	if !ok {
		return nil, false
	}
	f, ok := c.fields[name]
	if !ok {
		return nil, false
	}
	return f, true
}

// ReadNumeric implements attributex.Reflector.
func (w *World) ReadNumeric(instance any, field attributex.FieldHandle) (float64, error) {
	f, ok := field.(*Field)
	if !ok {
		return 0, fmt.Errorf("read: foreign field handle %T", field)
	}
	if c, ok := instance.(*attributex.Container); ok {
		v, ok := c.AttributeValue(c.Attribute(f.name))
		if !ok {
			return 0, fmt.Errorf("read %s: %w", f.name, attributex.ErrUnknownAttribute)
		}
		return v, nil
	}
	v, err := fieldValue(instance, f)
	if err != nil {
		return 0, err
	}
	switch {
	case v.CanFloat():
		return v.Float(), nil
	case v.CanInt():
		return float64(v.Int()), nil
	case v.CanUint():
		return float64(v.Uint()), nil
	default:
		return 0, fmt.Errorf("read %s: %w", f.name, attributex.ErrTypeMismatch)
	}
}

// WriteNumeric implements attributex.Reflector. Integer fields are rounded
// to the nearest value; unsigned fields floor at zero.
func (w *World) WriteNumeric(instance any, field attributex.FieldHandle, value float64) error {
	f, ok := field.(*Field)
	if !ok {
		return fmt.Errorf("write: foreign field handle %T", field)
	}
	if c, ok := instance.(*attributex.Container); ok {
		return c.SetValue(c.Attribute(f.name), value)
	}
	v, err := fieldValue(instance, f)
	if err != nil {
		return err
	}
	switch {
	case v.CanFloat():
		v.SetFloat(value)
	case v.CanInt():
		v.SetInt(int64(math.Round(value)))
	case v.CanUint():
		v.SetUint(uint64(math.Round(math.Max(value, 0))))
	default:
		return fmt.Errorf("write %s: %w", f.name, attributex.ErrTypeMismatch)
	}
	return nil
}

func fieldValue(instance any, f *Field) (reflect.Value, error) {
	if f.owner == nil {
		return reflect.Value{}, fmt.Errorf("%w: schema field %s on %T", ErrWrongType, f.name, instance)
	}
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Type() != f.owner {
		return reflect.Value{}, fmt.Errorf("%w: %T", ErrWrongType, instance)
	}
	fv, err := v.Elem().FieldByIndexErr(f.index)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %v", ErrWrongType, err)
	}
	return fv, nil
}

// FindComponentInstance implements attributex.InstanceFinder.
func (w *World) FindComponentInstance(owner any, class attributex.ClassHandle) (attributex.ObjectRef, bool) {
	c, ok := class.(*Class)
	if !ok {
		return nil, false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, h := range w.components[owner] {
		if h.class == c {
			return h, true
		}
	}
	return nil, false
}
