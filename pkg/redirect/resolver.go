package redirect

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

type sellerTarget struct {
	url    string
	status int
}

type patternTarget struct {
	re     *regexp.Regexp
	target string
	status int
}

// Table is a compiled, immutable set of redirect rules. Exact seller
// slugs are tried first, then regex patterns in file order, then the
// passthrough prefixes.
type Table struct {
	sellers     map[string]sellerTarget
	sellerIDs   map[string]string
	patterns    []patternTarget
	passthrough []string
}

// SlugForID returns the slug declared for a seller identifier.
func (t *Table) SlugForID(id string) (string, bool) {
	slug, ok := t.sellerIDs[id]
	return slug, ok
}

// Len returns the number of redirect rules in the table.
func (t *Table) Len() int {
	return len(t.sellers) + len(t.patterns)
}

// Resolve matches a request path against the table.
func (t *Table) Resolve(path string) Outcome {
	for _, prefix := range t.passthrough {
		if strings.HasPrefix(path, prefix) {
			return Continue()
		}
	}

	if slug := strings.Trim(path, "/"); slug != "" && !strings.Contains(slug, "/") {
		if target, ok := t.sellers[slug]; ok {
			return Redirect(target.url, target.status)
		}
	}

	for _, p := range t.patterns {
		idx := p.re.FindStringSubmatchIndex(path)
		if idx == nil {
			continue
		}
		dst := string(p.re.ExpandString(nil, p.target, path, idx))
		return Redirect(dst, p.status)
	}

	return NotFound()
}

// Resolver holds the active rule table and swaps it atomically on
// reload. A reload that fails to load or validate keeps the previous
// table so the front end never runs ruleless after a bad edit.
type Resolver struct {
	path          string
	defaultStatus int
	logger        *slog.Logger

	mu       sync.RWMutex
	table    *Table
	onReload func(ruleCount int)
}

// NewResolver loads the rule file and returns a resolver serving it.
func NewResolver(path string, defaultStatus int, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	table, err := LoadRules(path, defaultStatus)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		path:          path,
		defaultStatus: defaultStatus,
		logger:        logger.With("component", "redirect"),
		table:         table,
	}, nil
}

// Resolve matches the path against the active table.
func (r *Resolver) Resolve(path string) Outcome {
	r.mu.RLock()
	table := r.table
	r.mu.RUnlock()
	return table.Resolve(path)
}

// SlugForID returns the slug declared for a seller identifier in the
// active table.
func (r *Resolver) SlugForID(id string) (string, bool) {
	r.mu.RLock()
	table := r.table
	r.mu.RUnlock()
	return table.SlugForID(id)
}

// RuleCount returns the number of rules in the active table.
func (r *Resolver) RuleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table.Len()
}

// OnReload registers a callback invoked with the new rule count after
// every successful reload, so gauges derived from the table stay
// current across hot reloads.
func (r *Resolver) OnReload(fn func(ruleCount int)) {
	r.mu.Lock()
	r.onReload = fn
	r.mu.Unlock()
}

// Reload re-reads the rule file and swaps in the new table. On failure
// the previous table stays active and the error is returned.
func (r *Resolver) Reload() error {
	table, err := LoadRules(r.path, r.defaultStatus)
	if err != nil {
		return fmt.Errorf("rules reload failed, keeping previous table: %w", err)
	}

	r.mu.Lock()
	previous := r.table.Len()
	r.table = table
	onReload := r.onReload
	r.mu.Unlock()

	r.logger.Info("redirect rules reloaded",
		"path", r.path,
		"rules", table.Len(),
		"previous_rules", previous,
	)
	if onReload != nil {
		onReload(table.Len())
	}
	return nil
}
