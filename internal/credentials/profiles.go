// Package credentials reads named credential profiles from an
// ~/.aws/config-style file and lets the operator pick one.
package credentials

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	profilePrefix  = "profile "
	defaultProfile = "default"
)

var (
	ErrConfigMissing     = errors.New("credential file does not exist")
	ErrNoProfiles        = errors.New("credential file has no profiles")
	ErrUnknownProfile    = errors.New("unknown profile")
	ErrNoProfileSelected = errors.New("no valid profile selected")
)

// Profile is one named bundle of credentials and region.
type Profile struct {
	Name            string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string

	// shared is set when the AWS SDK can address this section by name in a
	// config file: "[default]" or "[profile name]".
	shared bool
}

// SharedConfigName returns the name the AWS SDK knows this profile by, or ""
// when the section is not addressable by the SDK (an unprefixed "[name]").
func (p *Profile) SharedConfigName() string {
	if p.shared {
		return p.Name
	}
	return ""
}

// HasStaticKeys reports whether the profile carries its own key pair.
func (p *Profile) HasStaticKeys() bool {
	return p.AccessKeyID != "" && p.SecretAccessKey != ""
}

// File is a parsed credential file.
type File struct {
	Path     string
	profiles map[string]*Profile
}

// DefaultPath returns ~/.aws/config.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".aws", "config")
	}
	return filepath.Join(home, ".aws", "config")
}

// Load opens and parses the credential file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrConfigMissing)
		}
		return nil, fmt.Errorf("failed to open credential file: %w", err)
	}
	defer f.Close()

	file, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	file.Path = path
	return file, nil
}

// Parse reads "[name]" or "[profile name]" sections of "key = value" lines.
// Keys outside any section are ignored.
func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, data)
	if err != nil {
		return nil, err
	}

	file := &File{profiles: make(map[string]*Profile)}
	for _, section := range cfg.Sections() {
		raw := strings.TrimSpace(section.Name())
		if raw == ini.DefaultSection {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(raw, profilePrefix))
		if name == "" {
			continue
		}

		p := file.profiles[name]
		if p == nil {
			p = &Profile{Name: name}
			file.profiles[name] = p
		}
		if name == defaultProfile || strings.HasPrefix(raw, profilePrefix) {
			p.shared = true
		}
		setIfPresent(section, "aws_access_key_id", &p.AccessKeyID)
		setIfPresent(section, "aws_secret_access_key", &p.SecretAccessKey)
		setIfPresent(section, "aws_session_token", &p.SessionToken)
		setIfPresent(section, "region", &p.Region)
	}
	return file, nil
}

func setIfPresent(section *ini.Section, key string, dst *string) {
	if section.HasKey(key) {
		*dst = strings.TrimSpace(section.Key(key).String())
	}
}

// Names returns the profile names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.profiles))
	for name := range f.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named profile.
func (f *File) Get(name string) (*Profile, error) {
	p, ok := f.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownProfile)
	}
	return p, nil
}
