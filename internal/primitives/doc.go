// Package primitives holds the declarative form of an attribute container:
// a RuleSetConfig lists the attributes and the rules that govern them, can be
// loaded from YAML, validated, built fluently with RuleSetBuilder and turned
// into live attributex rules with Build.
//
// Attribute references in a rule set are either a bare field name, which
// refers to the container's own class, or a full "<ClassPath>.<Name>" path.
package primitives
