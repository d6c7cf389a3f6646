// Package manifest turns raw manifest text lines into delivery records and
// selects the records that enter routing.
package manifest

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profile describes the layout of one family of manifests: which cities
// terminate a record line, how route references start and which letters a
// category code may use.
type Profile struct {
	Cities         []string `yaml:"cities"`
	RouteRefPrefix string   `yaml:"route_ref_prefix"`
	CodeLetters    string   `yaml:"code_letters"` // regexp character-class body, e.g. "A" or "A-Z"
}

// DefaultProfile matches the Itabuna run sheets the planner was built for.
func DefaultProfile() Profile {
	return Profile{
		Cities:         []string{"Itabuna"},
		RouteRefPrefix: "BR",
		CodeLetters:    "A-Z",
	}
}

// LoadProfile reads a manifest profile from a YAML file. Missing fields fall
// back to DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, eris.Wrapf(err, "manifest: read profile %s", path)
	}

	// The YAML has a top-level "manifest" key
	var wrapper struct {
		Manifest Profile `yaml:"manifest"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Profile{}, eris.Wrap(err, "manifest: parse profile")
	}

	p := wrapper.Manifest
	def := DefaultProfile()
	if len(p.Cities) == 0 {
		p.Cities = def.Cities
	}
	if p.RouteRefPrefix == "" {
		p.RouteRefPrefix = def.RouteRefPrefix
	}
	if p.CodeLetters == "" {
		p.CodeLetters = def.CodeLetters
	}

	if err := p.validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (p Profile) validate() error {
	for _, c := range p.Cities {
		if strings.TrimSpace(c) == "" {
			return eris.New("manifest: profile has an empty city name")
		}
	}
	if strings.ContainsAny(p.CodeLetters, "[]\\^") {
		return eris.Errorf("manifest: invalid code_letters %q", p.CodeLetters)
	}
	return nil
}
