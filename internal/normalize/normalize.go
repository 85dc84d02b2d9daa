package normalize

import (
	"regexp"
	"strings"
)

// Status classifies a listing's stock availability.
type Status string

const (
	StatusInStock    Status = "in_stock"
	StatusInStockAlt Status = "in_stock_alt"
	StatusBackorder  Status = "backorder"
	StatusOutOfStock Status = "out_of_stock"
	StatusUnknown    Status = "unknown"
)

// statusWords maps the retailer's stock keywords to statuses. Matched in
// order; "В наличии" is case-sensitive so it does not hit "Нет в наличии".
var statusWords = []struct {
	word   string
	status Status
}{
	{"В наличии", StatusInStock},
	{"Есть на складе", StatusInStockAlt},
	{"Под заказ", StatusBackorder},
	{"Нет в наличии", StatusOutOfStock},
}

// AvailableStatuses are the statuses a buyer can actually act on.
var AvailableStatuses = map[Status]bool{
	StatusInStock:    true,
	StatusInStockAlt: true,
	StatusBackorder:  true,
}

// SIM describes a listing's SIM configuration.
type SIM string

const (
	SIMDual    SIM = "DualSim"
	SIMPlusE   SIM = "SIM+eSIM"
	SIMEOnly   SIM = "eSIM"
	SIMUnknown SIM = "unknown"
)

// Rank orders SIM types for result sorting: two physical slots first,
// eSIM-only last among known values.
func (s SIM) Rank() int {
	switch s {
	case SIMDual:
		return 0
	case SIMPlusE:
		return 1
	case SIMEOnly:
		return 2
	default:
		return 9
	}
}

// substitutions are applied as plain substring replacements before token
// mapping. They fold spellings that span token boundaries.
var substitutions = [][2]string{
	{"про-макс", "про макс"},
	{"промакс", "про макс"},
	{"sim+esim", "sim + esim"},
}

// synonyms map single normalized tokens onto their canonical form.
var synonyms = map[string]string{
	"айфон": "iphone",
	"aifon": "iphone",
	"ifone": "iphone",
	"iphon": "iphone",
	"iph":   "iphone",
	"про":   "pro",
	"макс":  "max",
	"плюс":  "plus",
	"мини":  "mini",
	"dual":  "dualsim",
}

// Normalize canonicalizes free text: lowercase, fold "ё", apply the
// substitution and synonym tables, collapse whitespace. Idempotent.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "ё", "е")
	s = strings.ReplaceAll(s, " ", " ")
	for _, sub := range substitutions {
		s = strings.ReplaceAll(s, sub[0], sub[1])
	}
	fields := strings.Fields(s)
	for i, f := range fields {
		if canon, ok := synonyms[f]; ok {
			fields[i] = canon
		}
	}
	return strings.Join(fields, " ")
}

var tokenSplitRE = regexp.MustCompile(`[\s,;/]+`)

// Tokenize normalizes a query and splits it into tokens. Synonyms are
// re-applied per token: Normalize folds whitespace-delimited words only, so
// "айфон,16" reaches this point with the alias still glued to the comma.
func Tokenize(q string) []string {
	q = Normalize(q)
	parts := tokenSplitRE.Split(q, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if canon, ok := synonyms[p]; ok {
			p = canon
		}
		out = append(out, p)
	}
	return out
}

var (
	modelRE     = regexp.MustCompile(`(?i)\b(iphone\s+.+?)\s+(\d{2,4})\s*(?:gb|гб)`)
	memoryRE    = regexp.MustCompile(`(?i)\b(\d{2,4})\s*(?:gb|гб)`)
	splitGenRE  = regexp.MustCompile(`(?i)\b(\d{1,2})\s+e\b`)
	parentheses = regexp.MustCompile(`\(([^)]+)\)`)
)

// UnknownModel is the catch-all model for titles the pattern cannot read.
const UnknownModel = "iPhone (unknown)"

// ParseModelMemory extracts the model phrase and memory size from a listing
// title. It never fails: unreadable titles yield UnknownModel and whatever
// memory token can still be recovered.
func ParseModelMemory(title string) (string, int) {
	m := modelRE.FindStringSubmatch(title)
	if m == nil {
		mem := 0
		if m2 := memoryRE.FindStringSubmatch(title); m2 != nil {
			mem = atoiSafe(m2[1])
		}
		return UnknownModel, mem
	}

	model := strings.TrimSpace(m[1])
	// "iPhone 16 e" is the compact model written with a stray space.
	model = splitGenRE.ReplaceAllString(model, "${1}e")
	return model, atoiSafe(m[2])
}

// ParseColorNative returns the native-language color: the title tail after
// the memory unit with any parenthetical transliteration stripped.
func ParseColorNative(title string) string {
	loc := memoryRE.FindStringIndex(title)
	if loc == nil {
		return "—"
	}
	tail := title[loc[1]:]
	tail = parentheses.ReplaceAllString(tail, "")
	tail = strings.Join(strings.Fields(tail), " ")
	tail = strings.Trim(tail, " -–—")
	if tail == "" {
		return "—"
	}
	return tail
}

// ParseColorEN returns the transliterated color from the first parenthetical.
func ParseColorEN(title string) string {
	if m := parentheses.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1])
	}
	return "—"
}

// ParseStockStatus scans text for the retailer's stock keywords.
func ParseStockStatus(text string) Status {
	for _, sw := range statusWords {
		if strings.Contains(text, sw.word) {
			return sw.status
		}
	}
	return StatusUnknown
}

// SIMFromTitle classifies the SIM configuration from title and URL text
// alone. Returns the classification and the physical-SIM count when the
// text implies one.
func SIMFromTitle(title, url string) (SIM, int) {
	t := Normalize(title)
	u := Normalize(url)

	if strings.Contains(t, "sim + esim") || strings.Contains(u, "sim + esim") || strings.Contains(u, "sim-esim") {
		return SIMPlusE, 0
	}
	if strings.Contains(t, "dualsim") || strings.Contains(t, "dual sim") ||
		strings.Contains(u, "dual-sim") || strings.Contains(u, "2-sim") {
		return SIMDual, 2
	}
	if strings.Contains(t, "esim") || strings.Contains(u, "-esim") {
		return SIMEOnly, 0
	}
	return SIMUnknown, 0
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
