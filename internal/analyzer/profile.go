package analyzer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Profile describes the candidate the analyzer scores postings for.
// It is forwarded verbatim to the remote service.
type Profile struct {
	Name                  string   `json:"name" yaml:"name"`
	Email                 string   `json:"email" yaml:"email"`
	Phone                 string   `json:"phone" yaml:"phone"`
	Experience            int      `json:"experience" yaml:"experience"`
	Level                 string   `json:"level,omitempty" yaml:"level,omitempty"`
	Domain                string   `json:"domain" yaml:"domain"`
	Skills                []string `json:"skills" yaml:"skills"`
	PreferredRoles        []string `json:"preferredRoles" yaml:"preferredRoles"`
	PreferredWorkType     []string `json:"preferredWorkType" yaml:"preferredWorkType"`
	ExcludedRoles         []string `json:"excludedRoles" yaml:"excludedRoles"`
	PreferredCompanyTypes []string `json:"preferredCompanyTypes" yaml:"preferredCompanyTypes"`
	ResumeURL             string   `json:"resumeUrl" yaml:"resumeUrl"`
}

// DefaultProfile is used when no profile file is configured.
func DefaultProfile() Profile {
	return Profile{
		Name:                  "Job Seeker",
		Email:                 "jobseeker@example.com",
		Experience:            1,
		Domain:                "Python Backend Development + AI/ML",
		Skills:                []string{"Python", "Flask", "FastAPI", "TensorFlow", "HuggingFace", "OpenAI API", "Pandas", "NumPy"},
		PreferredRoles:        []string{"Backend Developer", "AI/ML Engineer"},
		PreferredWorkType:     []string{"Remote", "Hybrid"},
		ExcludedRoles:         []string{"Frontend", "Sales", "DevOps", ".NET", "PHP-only", "Android-only"},
		PreferredCompanyTypes: []string{"Tech startups", "AI-focused firms", "product-based companies"},
	}
}

// LoadProfile reads a YAML profile. Fields absent from the file keep
// their default values. An empty path yields the default profile.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()

	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, errors.Wrapf(err, "failed to read profile %v", path)
	}

	if err = yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, errors.Wrapf(err, "failed to parse profile %v", path)
	}

	return p, nil
}

// Validate reports whether p can be sent to the remote service.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("profile name is required")
	}
	if p.Experience < 0 {
		return errors.Errorf("profile experience must not be negative: %d", p.Experience)
	}
	return nil
}

// SaveProfile writes p to path as YAML, replacing the file atomically.
func SaveProfile(path string, p Profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "failed to encode profile")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".profile-*.yaml")
	if err != nil {
		return errors.Wrapf(err, "failed to write profile %v", path)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write profile %v", path)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to write profile %v", path)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to replace profile %v", path)
	}

	return nil
}
