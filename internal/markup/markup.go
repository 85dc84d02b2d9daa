package markup

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/senoxone/qbshop/internal/normalize"
)

// Rule is one legacy pattern/markup pair. The ordered rule list predates the
// per-model map and is kept so old documents keep resolving.
type Rule struct {
	Pattern string `json:"pattern"`
	Markup  int64  `json:"markup"`
}

// document is the on-disk shape of the markup configuration.
type document struct {
	Default int64            `json:"default"`
	Models  map[string]int64 `json:"models"`
	Rules   []Rule           `json:"rules,omitempty"`
}

type compiledRule struct {
	re      *regexp.Regexp
	markup  int64
	pattern string
}

// Config resolves per-model markup amounts. Both schema generations (model
// map and legacy regex rules) are folded into one value at load time;
// resolution order is model override, then first matching rule, then default.
type Config struct {
	path     string
	def      int64
	models   map[string]int64
	rules    []Rule
	compiled []compiledRule
}

const seedDefault = 5000

// seedModels is written when no document exists yet.
var seedModels = map[string]int64{
	"iPhone 12 mini":    4000,
	"iPhone 14":         5000,
	"iPhone 16":         7000,
	"iPhone 16 Pro Max": 9000,
}

// Load reads the markup document at path, seeding it with defaults first if
// it does not exist.
func Load(path string) (*Config, error) {
	c := &Config{path: path, def: seedDefault, models: map[string]int64{}}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		c.models = make(map[string]int64, len(seedModels))
		for k, v := range seedModels {
			c.models[k] = v
		}
		if err := c.save(); err != nil {
			return nil, err
		}
		return c, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markup config: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse markup config: %w", err)
	}

	if doc.Default > 0 {
		c.def = doc.Default
	}
	for k, v := range doc.Models {
		k = strings.TrimSpace(k)
		if k != "" {
			c.models[k] = v
		}
	}
	c.rules = doc.Rules
	c.compile()
	return c, nil
}

func (c *Config) save() error {
	doc := document{Default: c.def, Models: c.models, Rules: c.rules}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode markup config: %w", err)
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return fmt.Errorf("write markup config: %w", err)
	}
	c.compile()
	return nil
}

func (c *Config) compile() {
	c.compiled = c.compiled[:0]
	for _, r := range c.rules {
		pat := strings.TrimSpace(r.Pattern)
		if pat == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			continue
		}
		c.compiled = append(c.compiled, compiledRule{re: re, markup: r.Markup, pattern: pat})
	}
}

// Resolve returns the markup amount for a model name.
func (c *Config) Resolve(model string) decimal.Decimal {
	model = strings.TrimSpace(model)
	if model == "" {
		return decimal.NewFromInt(c.def)
	}

	nm := normalize.Normalize(model)
	for k, v := range c.models {
		if normalize.Normalize(k) == nm {
			return decimal.NewFromInt(v)
		}
	}

	for _, r := range c.compiled {
		if r.re.MatchString(model) {
			return decimal.NewFromInt(r.markup)
		}
	}

	return decimal.NewFromInt(c.def)
}

// Default returns the global default markup.
func (c *Config) Default() decimal.Decimal {
	return decimal.NewFromInt(c.def)
}

// SetDefault changes the global default and persists.
func (c *Config) SetDefault(markup int64) error {
	c.def = markup
	return c.save()
}

// SetModel sets a per-model override and persists.
func (c *Config) SetModel(model string, markup int64) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return fmt.Errorf("model name required")
	}
	c.models[model] = markup
	return c.save()
}

// DeleteModel removes a per-model override and persists.
func (c *Config) DeleteModel(model string) error {
	model = strings.TrimSpace(model)
	if _, ok := c.models[model]; !ok {
		return nil
	}
	delete(c.models, model)
	return c.save()
}

// SetRule updates a legacy rule in place or prepends a new one, then
// persists. New rules go to the front so they win over older patterns.
func (c *Config) SetRule(pattern string, markup int64) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return fmt.Errorf("pattern required")
	}
	for i, r := range c.rules {
		if strings.TrimSpace(r.Pattern) == pattern {
			c.rules[i].Markup = markup
			return c.save()
		}
	}
	c.rules = append([]Rule{{Pattern: pattern, Markup: markup}}, c.rules...)
	return c.save()
}

// DeleteRule removes a legacy rule and persists.
func (c *Config) DeleteRule(pattern string) error {
	pattern = strings.TrimSpace(pattern)
	kept := c.rules[:0]
	for _, r := range c.rules {
		if strings.TrimSpace(r.Pattern) != pattern {
			kept = append(kept, r)
		}
	}
	c.rules = kept
	return c.save()
}

// String renders the configuration for display.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "default: %d ₽\nmodels:\n", c.def)
	if len(c.models) == 0 {
		b.WriteString("  (none)\n")
	} else {
		names := make([]string, 0, len(c.models))
		for m := range c.models {
			names = append(names, m)
		}
		sort.Slice(names, func(i, j int) bool {
			return normalize.Normalize(names[i]) < normalize.Normalize(names[j])
		})
		for _, m := range names {
			fmt.Fprintf(&b, "  %s: %d ₽\n", m, c.models[m])
		}
	}
	if len(c.compiled) > 0 {
		b.WriteString("rules (legacy):\n")
		for _, r := range c.compiled {
			fmt.Fprintf(&b, "  %d ₽ <= /%s/i\n", r.markup, r.pattern)
		}
	}
	return b.String()
}
