package permits

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// County is one entry in the county feed registry.
type County struct {
	Name   string `yaml:"name"`
	Domain string `yaml:"domain"`
}

type registryFile struct {
	Counties []County `yaml:"counties"`
}

// LoadRegistry reads the county registry from a YAML file. A missing
// file is not an error; the national feed still runs without counties.
func LoadRegistry(path string) ([]County, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "permits: read registry %s", path)
	}

	var parsed registryFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, eris.Wrapf(err, "permits: parse registry %s", path)
	}

	var counties []County
	for _, c := range parsed.Counties {
		if c.Domain == "" {
			continue
		}
		counties = append(counties, c)
	}
	return counties, nil
}
