package subscription

import (
	"context"
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

type fileSource struct {
	path string
}

// NewFileSource returns a Source that reads the plan catalog from a YAML
// file. The expected layout is a top-level "plans" list:
//
//	plans:
//	  - id: pri_starter_monthly
//	    name: Starter
//	    monthly_credits: 500
//	    public: true
func NewFileSource(path string) Source {
	if path == "" {
		panic("subscription: plan catalog path is required")
	}
	return &fileSource{path: path}
}

func (s *fileSource) Load(ctx context.Context) (map[string]Plan, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}

	var catalog struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}

	plans := make(map[string]Plan, len(catalog.Plans))
	for _, plan := range catalog.Plans {
		plans[plan.ID] = plan
	}

	if err := ValidatePlans(plans); err != nil {
		return nil, err
	}
	return plans, nil
}
