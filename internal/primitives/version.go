package primitives

import (
	"crypto/sha256"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ComputeVersion returns c.Version when set, otherwise the first 8 bytes of
// the SHA-256 of the rule set's YAML encoding. The same rule set always gets
// the same version.
func ComputeVersion(c *RuleSetConfig) string {
	if c.Version != "" {
		return c.Version
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return "invalid"
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:8])
}
