package attributex

import "fmt"

// BindingRule mirrors an attribute into a numeric field of a component owned
// by the same owner as the container. The binding is one way: attribute to
// field, on every post-change.
//
// The target class and field are resolved on first use and cached; the target
// instance is held through an ObjectRef and looked up again once it goes away.
// A missing instance skips the write. A non-numeric target field is a
// configuration error: it is logged once and the rule goes inert.
type BindingRule struct {
	RuleBase

	Attribute    Attribute
	ClassPath    string
	PropertyName string

	targetClass ClassHandle
	targetField FieldHandle
	target      ObjectRef
	err         error
}

// NewBindingRule returns a rule copying attr into classPath.propertyName.
func NewBindingRule(attr Attribute, classPath, propertyName string) *BindingRule {
	return &BindingRule{Attribute: attr, ClassPath: classPath, PropertyName: propertyName}
}

// InitRule implements Rule.
func (r *BindingRule) InitRule(c *Container) error {
	if err := r.Bind(c); err != nil {
		return err
	}
	if !r.Attribute.IsValid() {
		return fmt.Errorf("binding rule: %w: %q", ErrInvalidPath, r.Attribute.String())
	}
	if r.ClassPath == "" || r.PropertyName == "" {
		return fmt.Errorf("binding rule %s: target class and property are required", r.Attribute)
	}
	c.GetNotifier().OnPostAttributeChange(r.Attribute).Add(func(_, newValue float64) {
		r.SetValue(newValue)
	})
	return nil
}

// Err returns the configuration error that disabled the rule, if any.
func (r *BindingRule) Err() error {
	return r.err
}

// Target returns the path of the bound field.
func (r *BindingRule) Target() string {
	return r.ClassPath + "." + r.PropertyName
}

// SetValue writes value into the target field. It never fails the attribute
// change that triggered it.
func (r *BindingRule) SetValue(value float64) {
	if r.err != nil {
		return
	}
	c := r.Container()
	if c == nil {
		return
	}
	if r.targetField == nil {
		if err := r.resolveField(c); err != nil {
			if r.err != nil {
				c.Logf("binding %s -> %s disabled: %v", r.Attribute, r.Target(), err)
			}
			return
		}
	}
	instance, ok := r.instance(c)
	if !ok {
		return
	}
	if err := c.Reflector().WriteNumeric(instance, r.targetField, value); err != nil {
		c.Logf("binding %s -> %s: %v", r.Attribute, r.Target(), err)
	}
}

// resolveField resolves the target class and field. Failures to find the
// class or field are temporary (the class may not be loaded yet); a field of
// the wrong type disables the rule.
func (r *BindingRule) resolveField(c *Container) error {
	reflector := c.Reflector()
	if reflector == nil {
		return fmt.Errorf("%w: no reflector", ErrUnresolvedReference)
	}
	class, ok := reflector.ResolveClass(r.ClassPath)
	if !ok {
		return fmt.Errorf("%w: class %q", ErrUnresolvedReference, r.ClassPath)
	}
	field, ok := reflector.FindField(class, r.PropertyName)
	if !ok {
		return fmt.Errorf("%w: field %q", ErrUnresolvedReference, r.Target())
	}
	if !IsAttributeType(field) {
		r.err = fmt.Errorf("%w: %s", ErrTypeMismatch, r.Target())
		return r.err
	}
	r.targetClass, r.targetField = class, field
	return nil
}

func (r *BindingRule) instance(c *Container) (any, bool) {
	if r.target != nil {
		if obj, ok := r.target.Get(); ok {
			return obj, true
		}
		r.target = nil
	}
	finder := c.InstanceFinder()
	if finder == nil {
		return nil, false
	}
	ref, ok := finder.FindComponentInstance(c.Owner(), r.targetClass)
	if !ok || ref == nil {
		return nil, false
	}
	obj, ok := ref.Get()
	if !ok {
		return nil, false
	}
	r.target = ref
	return obj, true
}
