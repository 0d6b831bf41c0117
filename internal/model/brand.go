package model

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// BrandContext is the business profile that seeds discovery searches and
// analysis prompts: who the brand is and what it claims to do best.
type BrandContext struct {
	BrandID        string   `json:"brand_id" yaml:"brand_id"`
	Name           string   `json:"name" yaml:"name"`
	Industry       string   `json:"industry,omitempty" yaml:"industry"`
	Description    string   `json:"description,omitempty" yaml:"description"`
	UniqueSolution string   `json:"unique_solution,omitempty" yaml:"unique_solution"`
	KeyBenefit     string   `json:"key_benefit,omitempty" yaml:"key_benefit"`
	TargetCustomer string   `json:"target_customer,omitempty" yaml:"target_customer"`
	Keywords       []string `json:"keywords,omitempty" yaml:"keywords"`
}

// LoadBrandContext reads a BrandContext from a YAML file.
func LoadBrandContext(path string) (*BrandContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "model: read brand context %s", path)
	}
	var bc BrandContext
	if err := yaml.Unmarshal(data, &bc); err != nil {
		return nil, eris.Wrapf(err, "model: parse brand context %s", path)
	}
	if bc.BrandID == "" {
		return nil, eris.New("model: brand context missing brand_id")
	}
	return &bc, nil
}
