package rbac

import (
	_ "embed"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicy []byte

type Permission struct {
	Resource string   `yaml:"resource" json:"resource" validate:"required"`
	Actions  []string `yaml:"actions" json:"actions" validate:"required,min=1,dive,required"`
}

type Role struct {
	Name        string       `yaml:"name" validate:"required,uppercase"`
	Inherits    []string     `yaml:"inherits" validate:"dive,required"`
	Permissions []Permission `yaml:"permissions" validate:"dive"`
}

type Policy struct {
	Roles []Role `yaml:"roles" validate:"required,min=1,dive"`
}

// DefaultPolicy returns the policy compiled into the binary.
func DefaultPolicy() (Policy, error) {
	return ParsePolicy(defaultPolicy)
}

// ParsePolicy decodes and validates a policy document. Inherited roles must
// be declared in the same document.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("decode rbac policy: %w", err)
	}
	if err := validator.New().Struct(p); err != nil {
		return Policy{}, fmt.Errorf("validate rbac policy: %w", err)
	}

	declared := make(map[string]bool, len(p.Roles))
	for _, r := range p.Roles {
		if declared[r.Name] {
			return Policy{}, fmt.Errorf("validate rbac policy: role %s declared twice", r.Name)
		}
		declared[r.Name] = true
	}
	for _, r := range p.Roles {
		for _, parent := range r.Inherits {
			if !declared[parent] {
				return Policy{}, fmt.Errorf("validate rbac policy: role %s inherits unknown role %s", r.Name, parent)
			}
		}
	}
	return p, nil
}
