package decillion

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// markupPath is the import path of the markup DSL package whose constructors
// the driver recognizes, and runtimePath is the block runtime the generated
// code calls into. Both can be overridden with options for hosts that vendor
// the packages elsewhere.
const (
	defaultMarkupPath  = "github.com/evilbocchi/decillion/pkg/ui"
	defaultRuntimePath = "github.com/evilbocchi/decillion/pkg/block"
	defaultRuntimeName = "block"
)

// AllowList is the only classifier configuration surface: the set of calls
// treated as pure (side-effect free with argument-stable results). Any call
// not on the list is classified opaque. The list is configuration, not
// hard-coded logic, so hosts can extend it for their own known-pure helpers.
type AllowList struct {
	// Calls holds qualified function names ("import/path.Name", or a bare
	// name for universe builtins).
	Calls []string `yaml:"calls" validate:"dive,required"`

	// ReplaceDefaults drops the built-in entries instead of extending them.
	ReplaceDefaults bool `yaml:"replace_defaults"`
}

// DefaultAllowList returns the built-in entries: the markup package's pure
// value constructors and the handful of pure builtins. Markup constructors
// themselves (E, Text, Group) are absent: they are decoded structurally,
// and conditional/list helpers must stay opaque boundaries.
func DefaultAllowList() *AllowList {
	return &AllowList{
		Calls: []string{
			defaultMarkupPath + ".RGB",
			defaultMarkupPath + ".Hex",
			defaultMarkupPath + ".Dim",
			"len",
			"cap",
			"min",
			"max",
		},
	}
}

// LoadAllowList reads and validates an allow-list YAML document.
func LoadAllowList(path string) (*AllowList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allow-list: %w", err)
	}
	return ParseAllowList(raw)
}

// ParseAllowList parses and validates an allow-list YAML document.
func ParseAllowList(raw []byte) (*AllowList, error) {
	var list AllowList
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse allow-list: %w", err)
	}
	if err := validator.New().Struct(&list); err != nil {
		return nil, fmt.Errorf("invalid allow-list: %w", err)
	}
	return &list, nil
}

// resolve flattens the configured list (plus defaults unless replaced) into
// the lookup map the classifier uses.
func (l *AllowList) resolve() map[string]bool {
	out := make(map[string]bool)
	if l == nil {
		l = &AllowList{}
	}
	if !l.ReplaceDefaults {
		for _, name := range DefaultAllowList().Calls {
			out[name] = true
		}
	}
	for _, name := range l.Calls {
		out[name] = true
	}
	return out
}
