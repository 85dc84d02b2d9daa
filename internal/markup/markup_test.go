package markup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func tempConfig(t *testing.T) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "markup.json")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestLoadSeedsMissingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markup.json")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("document should have been written: %v", err)
	}
	if got := c.Default(); !got.Equal(intDecimal(5000)) {
		t.Errorf("seeded default = %s", got)
	}
	if got := c.Resolve("iPhone 16 Pro Max"); !got.Equal(intDecimal(9000)) {
		t.Errorf("seeded iPhone 16 Pro Max = %s", got)
	}
}

func TestResolvePrecedence(t *testing.T) {
	c := tempConfig(t)
	if err := c.SetModel("iPhone 16", 7000); err != nil {
		t.Fatal(err)
	}
	if err := c.SetRule("iPhone 16 Pro.*", 9500); err != nil {
		t.Fatal(err)
	}

	// Exact model wins over any rule.
	if got := c.Resolve("iPhone 16"); !got.Equal(intDecimal(7000)) {
		t.Errorf("model override = %s, want 7000", got)
	}
	// Model match is normalization-insensitive.
	if got := c.Resolve("айфон 16"); !got.Equal(intDecimal(7000)) {
		t.Errorf("normalized model match = %s, want 7000", got)
	}
	// No model override falls through to the first matching rule.
	if got := c.Resolve("iPhone 16 Pro"); !got.Equal(intDecimal(9500)) {
		t.Errorf("rule match = %s, want 9500", got)
	}
	// Nothing matches: default applies.
	if got := c.Resolve("iPhone 11"); !got.Equal(c.Default()) {
		t.Errorf("fallback = %s, want default", got)
	}
	if got := c.Resolve(""); !got.Equal(c.Default()) {
		t.Errorf("empty model = %s, want default", got)
	}
}

func TestSetRuleUpdatesInPlaceAndPrepends(t *testing.T) {
	c := tempConfig(t)
	if err := c.SetRule("iPhone 1[45].*", 6000); err != nil {
		t.Fatal(err)
	}
	if err := c.SetRule("iPhone 15.*", 6500); err != nil {
		t.Fatal(err)
	}
	// The newer rule sits in front and wins for overlapping patterns.
	if got := c.Resolve("iPhone 15 Plus"); !got.Equal(intDecimal(6500)) {
		t.Errorf("newest rule should win, got %s", got)
	}

	if err := c.SetRule("iPhone 15.*", 6600); err != nil {
		t.Fatal(err)
	}
	if got := c.Resolve("iPhone 15 Plus"); !got.Equal(intDecimal(6600)) {
		t.Errorf("updated rule = %s, want 6600", got)
	}

	if err := c.DeleteRule("iPhone 15.*"); err != nil {
		t.Fatal(err)
	}
	if got := c.Resolve("iPhone 15 Plus"); !got.Equal(intDecimal(6000)) {
		t.Errorf("after delete = %s, want 6000", got)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markup.json")
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetDefault(4500); err != nil {
		t.Fatal(err)
	}
	if err := c.SetModel("iPhone 17", 8000); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteModel("iPhone 14"); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Default(); !got.Equal(intDecimal(4500)) {
		t.Errorf("reloaded default = %s", got)
	}
	if got := reloaded.Resolve("iPhone 17"); !got.Equal(intDecimal(8000)) {
		t.Errorf("reloaded model = %s", got)
	}
	if got := reloaded.Resolve("iPhone 14"); !got.Equal(intDecimal(4500)) {
		t.Errorf("deleted model should use default, got %s", got)
	}
}

func TestInvalidRulePatternIgnored(t *testing.T) {
	c := tempConfig(t)
	if err := c.SetRule("iPhone [16", 9000); err != nil {
		t.Fatal(err)
	}
	// The broken pattern never compiles, so resolution falls to the default.
	if got := c.Resolve("iPhone 16 Pro"); !got.Equal(c.Default()) {
		t.Errorf("broken pattern should not resolve, got %s", got)
	}
}

func intDecimal(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}
