package form

import (
	"fmt"
	"os"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// defaultNames maps the internal field names of the insurance application
// form to the keys used in extracted JSON.
var defaultNames = map[string]string{
	"Applicant's Name and Address": "applicantNameAndAddress",
	"Policy Number":                "policyNumber",
	"Effective Date":               "effectiveDate",
	"Expiration Date":              "expirationDate",
	"DOB":                          "dateOfBirth",
	"SSN":                          "socialSecurityNumber",
	"Phone":                        "phoneNumber",
}

// NameMapping translates internal field names into display keys.
// It is immutable once built.
type NameMapping struct {
	keys  map[string]string
	names map[string]string
}

// DefaultMapping returns the built-in name mapping
func DefaultMapping() *NameMapping {
	return NewMapping(defaultNames)
}

// NewMapping builds a mapping from a name -> key table
func NewMapping(table map[string]string) *NameMapping {
	m := &NameMapping{
		keys:  make(map[string]string, len(table)),
		names: make(map[string]string, len(table)),
	}
	for name, key := range table {
		n := norm.NFC.String(name)
		k := norm.NFC.String(key)
		m.keys[n] = k
		m.names[k] = n
	}
	return m
}

// LoadMapping reads a YAML document of `internal name: key` pairs and merges
// it over the default table.
func LoadMapping(path string) (*NameMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	return ParseMapping(data)
}

// ParseMapping merges a YAML table over the default table
func ParseMapping(data []byte) (*NameMapping, error) {
	var table map[string]string
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse mapping: %w", err)
	}

	merged := make(map[string]string, len(defaultNames)+len(table))
	for name, key := range defaultNames {
		merged[name] = key
	}
	for name, key := range table {
		if key == "" {
			delete(merged, name)
			continue
		}
		merged[name] = key
	}
	return NewMapping(merged), nil
}

// Key returns the display key for an internal field name. Unmapped names are
// their own key.
func (m *NameMapping) Key(name string) string {
	if m == nil {
		return name
	}
	if key, ok := m.keys[norm.NFC.String(name)]; ok {
		return key
	}
	return name
}

// Name resolves a display key back to the internal field name
func (m *NameMapping) Name(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	name, ok := m.names[norm.NFC.String(key)]
	return name, ok
}

// Len returns the number of mapped names
func (m *NameMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}
