package redirect

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk YAML schema for redirect rules.
type RuleFile struct {
	// DefaultStatus is used by rules that do not set their own status.
	// Zero falls back to the status the resolver was constructed with.
	DefaultStatus int `yaml:"default_status"`

	// Sellers are exact-match rules keyed by seller slug: a request for
	// /<slug> redirects to URL.
	Sellers []SellerRule `yaml:"sellers"`

	// Patterns are regex rules tried in file order after the exact
	// matches. Target may reference capture groups as $1, $2, ...
	Patterns []PatternRule `yaml:"patterns"`

	// Passthrough lists path prefixes the redirect table does not own;
	// matching requests are handed to the next handler.
	Passthrough []string `yaml:"passthrough"`
}

// SellerRule redirects the path /<slug> to a fixed destination. ID is
// the seller's numeric identifier; when set, /s/<id> resolves to the
// slug through the seller lookup cache.
type SellerRule struct {
	Slug   string `yaml:"slug"`
	ID     string `yaml:"id"`
	URL    string `yaml:"url"`
	Status int    `yaml:"status"`
}

// PatternRule redirects paths matching a regular expression, expanding
// capture groups into the target.
type PatternRule struct {
	Match  string `yaml:"match"`
	Target string `yaml:"target"`
	Status int    `yaml:"status"`
}

// validStatus reports whether s is a redirect status the table accepts.
func validStatus(s int) bool {
	switch s {
	case 301, 302, 307, 308:
		return true
	}
	return false
}

// LoadRules reads and validates the YAML rule file, compiling it into
// an immutable Table. defaultStatus applies to rules without their own
// status when the file sets no default of its own.
func LoadRules(path string, defaultStatus int) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	return compile(&file, defaultStatus)
}

// compile validates the rule file and builds the lookup structures.
func compile(file *RuleFile, defaultStatus int) (*Table, error) {
	fallback := file.DefaultStatus
	if fallback == 0 {
		fallback = defaultStatus
	}
	if !validStatus(fallback) {
		return nil, fmt.Errorf("invalid default redirect status %d", fallback)
	}

	t := &Table{
		sellers:     make(map[string]sellerTarget, len(file.Sellers)),
		sellerIDs:   make(map[string]string),
		passthrough: make([]string, 0, len(file.Passthrough)),
	}

	for i, rule := range file.Sellers {
		if rule.Slug == "" {
			return nil, fmt.Errorf("seller rule %d: slug is required", i)
		}
		if strings.ContainsAny(rule.Slug, "/ ") {
			return nil, fmt.Errorf("seller rule %q: slug must not contain slashes or spaces", rule.Slug)
		}
		if _, dup := t.sellers[rule.Slug]; dup {
			return nil, fmt.Errorf("seller rule %q: duplicate slug", rule.Slug)
		}
		if err := validateTargetURL(rule.URL); err != nil {
			return nil, fmt.Errorf("seller rule %q: %w", rule.Slug, err)
		}
		status := rule.Status
		if status == 0 {
			status = fallback
		}
		if !validStatus(status) {
			return nil, fmt.Errorf("seller rule %q: invalid status %d", rule.Slug, status)
		}
		t.sellers[rule.Slug] = sellerTarget{url: rule.URL, status: status}
		if rule.ID != "" {
			if _, dup := t.sellerIDs[rule.ID]; dup {
				return nil, fmt.Errorf("seller rule %q: duplicate id %q", rule.Slug, rule.ID)
			}
			t.sellerIDs[rule.ID] = rule.Slug
		}
	}

	for i, rule := range file.Patterns {
		if rule.Match == "" {
			return nil, fmt.Errorf("pattern rule %d: match is required", i)
		}
		re, err := regexp.Compile(rule.Match)
		if err != nil {
			return nil, fmt.Errorf("pattern rule %q: %w", rule.Match, err)
		}
		if rule.Target == "" {
			return nil, fmt.Errorf("pattern rule %q: target is required", rule.Match)
		}
		status := rule.Status
		if status == 0 {
			status = fallback
		}
		if !validStatus(status) {
			return nil, fmt.Errorf("pattern rule %q: invalid status %d", rule.Match, status)
		}
		t.patterns = append(t.patterns, patternTarget{re: re, target: rule.Target, status: status})
	}

	for i, prefix := range file.Passthrough {
		if !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("passthrough entry %d: %q must start with /", i, prefix)
		}
		t.passthrough = append(t.passthrough, prefix)
	}

	return t, nil
}

func validateTargetURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be absolute http(s)", raw)
	}
	return nil
}
