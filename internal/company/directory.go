package company

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vmud/newshub/internal/news"
)

//go:embed companies.yaml
var defaultDirectoryYAML []byte

// Entry is one tracked company as configured in the alias file.
type Entry struct {
	Slug    string   `yaml:"slug"`
	Name    string   `yaml:"name"`
	CIK     string   `yaml:"cik"`
	Aliases []string `yaml:"aliases"`
}

// Directory is the configured alias set. The company IDs themselves come
// from the database; the directory only knows names.
type Directory struct {
	Companies []Entry `yaml:"companies"`
}

// LoadDirectory reads the alias file at path, or the built-in one when path
// is empty.
func LoadDirectory(path string) (*Directory, error) {
	data := defaultDirectoryYAML
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read companies file %s: %w", path, err)
		}
		data = raw
	}
	return ParseDirectory(data)
}

func ParseDirectory(data []byte) (*Directory, error) {
	var dir Directory
	if err := yaml.Unmarshal(data, &dir); err != nil {
		return nil, fmt.Errorf("parse companies yaml: %w", err)
	}

	seen := make(map[string]struct{}, len(dir.Companies))
	for i := range dir.Companies {
		entry := &dir.Companies[i]
		entry.Name = strings.TrimSpace(entry.Name)
		entry.Slug = strings.ToLower(strings.TrimSpace(entry.Slug))
		entry.CIK = strings.TrimSpace(entry.CIK)
		if entry.Name == "" {
			return nil, fmt.Errorf("companies[%d]: name is required", i)
		}
		if entry.Slug == "" {
			entry.Slug = slugify(entry.Name)
		}
		if _, dup := seen[entry.Slug]; dup {
			return nil, fmt.Errorf("companies[%d]: duplicate slug %q", i, entry.Slug)
		}
		seen[entry.Slug] = struct{}{}
		entry.Aliases = cleanAliases(entry.Name, entry.Aliases)
	}
	return &dir, nil
}

// Names returns the canonical names in file order.
func (d *Directory) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.Companies))
	for _, entry := range d.Companies {
		names = append(names, entry.Name)
	}
	return names
}

// AllAliases is the flat alias list handed to source adapters.
func (d *Directory) AllAliases() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Companies)*2)
	seen := map[string]struct{}{}
	for _, entry := range d.Companies {
		for _, alias := range entry.Aliases {
			key := strings.ToLower(alias)
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, alias)
		}
	}
	return out
}

// CIKs maps every lowercased alias of a company with a CIK to that CIK.
func (d *Directory) CIKs() map[string]string {
	out := map[string]string{}
	if d == nil {
		return out
	}
	for _, entry := range d.Companies {
		if entry.CIK == "" {
			continue
		}
		for _, alias := range entry.Aliases {
			out[strings.ToLower(alias)] = entry.CIK
		}
	}
	return out
}

// Attach copies configured aliases onto companies loaded from the database,
// matching on canonical name or slug.
func (d *Directory) Attach(companies []news.Company) []news.Company {
	byKey := map[string]Entry{}
	if d != nil {
		for _, entry := range d.Companies {
			byKey[strings.ToLower(entry.Name)] = entry
			byKey[entry.Slug] = entry
		}
	}

	out := make([]news.Company, 0, len(companies))
	for _, c := range companies {
		enriched := c
		if entry, ok := byKey[strings.ToLower(strings.TrimSpace(c.CanonicalName))]; ok {
			enriched.Aliases = append(append([]string(nil), c.Aliases...), entry.Aliases...)
		}
		out = append(out, enriched)
	}
	return out
}

func cleanAliases(name string, aliases []string) []string {
	out := make([]string, 0, len(aliases)+1)
	seen := map[string]struct{}{}
	for _, alias := range append([]string{name}, aliases...) {
		trimmed := strings.TrimSpace(alias)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
