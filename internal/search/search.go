package search

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/senoxone/qbshop/internal/normalize"
	"github.com/senoxone/qbshop/internal/storage"
)

// Class is the coarse shape of a user query.
type Class string

const (
	// ClassPrecise means both a model phrase and a memory size are present.
	ClassPrecise Class = "precise"
	// ClassModel means a model phrase without a memory size.
	ClassModel Class = "model"
	// ClassGeneral means the query pins down no model; it is rejected at
	// the search entry point rather than silently widened.
	ClassGeneral Class = "general"
)

// ErrTooGeneral rejects queries that would match the whole catalog.
var ErrTooGeneral = errors.New("query too general")

// Hint is attached to rejections so the front-end can ask the user to
// narrow the query.
const Hint = "назови модель: iphone 16 / iphone 16 pro / iphone se 2022, можно с памятью: iphone 16 256"

var (
	generationRE = regexp.MustCompile(`^\d{1,2}e?$`)
	yearRE       = regexp.MustCompile(`^\d{4}$`)
)

var modifierWords = map[string]bool{"pro": true, "max": true, "plus": true, "mini": true}

// memory sizes the catalog actually sells, as query tokens.
var memoryTokens = map[string]int{
	"64": 64, "128": 128, "256": 256, "512": 512, "1024": 1024,
	"1tb": 1024, "1тб": 1024,
}

// ExtractModelPhrase recovers a canonical model phrase from a query, or ""
// when the query does not pin one down. A leading generation token without
// the family name ("16 pro") is accepted when a modifier follows it.
func ExtractModelPhrase(query string) string {
	tokens := normalize.Tokenize(query)
	if len(tokens) == 0 {
		return ""
	}

	if generationRE.MatchString(tokens[0]) && len(tokens) >= 2 && modifierWords[tokens[1]] {
		tokens = append([]string{"iphone"}, tokens...)
	}

	if tokens[0] != "iphone" || len(tokens) < 2 {
		return ""
	}

	if generationRE.MatchString(tokens[1]) {
		phrase := []string{"iphone", tokens[1]}
		rest := tokens[2:]
		for _, mod := range []string{"pro", "max", "plus", "mini"} {
			if containsToken(rest, mod) {
				phrase = append(phrase, mod)
			}
		}
		return strings.Join(phrase, " ")
	}

	if tokens[1] == "se" {
		phrase := []string{"iphone", "se"}
		if len(tokens) >= 3 && yearRE.MatchString(tokens[2]) {
			phrase = append(phrase, tokens[2])
		}
		return strings.Join(phrase, " ")
	}

	return ""
}

// ExtractMemory returns the memory size named in a query, or 0.
func ExtractMemory(query string) int {
	for _, t := range normalize.Tokenize(query) {
		if mem, ok := memoryTokens[t]; ok {
			return mem
		}
	}
	return 0
}

// Classify buckets a query by how precisely it identifies offers.
func Classify(query string) Class {
	tokens := normalize.Tokenize(query)
	if len(tokens) == 0 {
		return ClassGeneral
	}
	phrase := ExtractModelPhrase(query)
	mem := ExtractMemory(query)
	switch {
	case phrase != "" && mem != 0:
		return ClassPrecise
	case phrase != "":
		return ClassModel
	default:
		return ClassGeneral
	}
}

const (
	// phraseBaseScore dominates token scores so phrase-qualified offers
	// never interleave with plain token matches.
	phraseBaseScore = 1000
	extraTokenScore = 20
	looseTokenScore = 10
)

// Match ranks offers against a query. With a model phrase, only offers whose
// normalized model starts with the phrase qualify (plus an exact memory match
// when the query named one); remaining query tokens refine the score.
// Without one, each token of at least three characters scores by substring
// presence and zero-score offers are dropped — that branch exists for
// internal reuse, the entry points reject general queries before it runs.
func Match(offers []storage.Offer, query string, allowed map[normalize.Status]bool) []storage.Offer {
	tokens := normalize.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	phrase := ExtractModelPhrase(query)
	mem := ExtractMemory(query)
	phraseTokens := map[string]bool{}
	for _, t := range strings.Fields(phrase) {
		phraseTokens[t] = true
	}
	type scored struct {
		score int
		offer storage.Offer
	}
	var results []scored

	general := Classify(query) == ClassGeneral

	for _, offer := range offers {
		if allowed != nil && !allowed[offer.Status] {
			continue
		}

		titleNorm := normalize.Normalize(offer.Title)
		modelNorm := normalize.Normalize(offer.Model)

		if phrase != "" {
			if !strings.HasPrefix(modelNorm, phrase) {
				continue
			}
			if mem != 0 && offer.MemoryGB != mem {
				continue
			}

			score := phraseBaseScore
			for _, t := range tokens {
				if t == "" || phraseTokens[t] || isMemoryToken(t, mem) {
					continue
				}
				if strings.Contains(titleNorm, t) {
					score += extraTokenScore
				}
			}
			results = append(results, scored{score, offer})
			continue
		}

		if general {
			continue
		}

		score := 0
		for _, t := range tokens {
			if len(t) < 3 {
				continue
			}
			if strings.Contains(titleNorm, t) {
				score += looseTokenScore
			}
		}
		if score > 0 {
			results = append(results, scored{score, offer})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return lessOffer(results[i].offer, results[j].offer)
	})

	out := make([]storage.Offer, len(results))
	for i, r := range results {
		out[i] = r.offer
	}
	return out
}

// Best returns the offer with the lowest resale price; the first seen wins
// ties. Nil when the slice is empty.
func Best(offers []storage.Offer) *storage.Offer {
	var best *storage.Offer
	for i := range offers {
		if best == nil || offers[i].ResalePrice.LessThan(best.ResalePrice) {
			best = &offers[i]
		}
	}
	return best
}

// lessOffer is the fixed tie-break order: model, memory ascending, color,
// SIM rank ascending, resale price ascending.
func lessOffer(a, b storage.Offer) bool {
	am, bm := normalize.Normalize(a.Model), normalize.Normalize(b.Model)
	if am != bm {
		return am < bm
	}
	if a.MemoryGB != b.MemoryGB {
		return a.MemoryGB < b.MemoryGB
	}
	ac, bc := normalize.Normalize(a.ColorNative), normalize.Normalize(b.ColorNative)
	if ac != bc {
		return ac < bc
	}
	if a.SIMDesc.Rank() != b.SIMDesc.Rank() {
		return a.SIMDesc.Rank() < b.SIMDesc.Rank()
	}
	return a.ResalePrice.LessThan(b.ResalePrice)
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

func isMemoryToken(t string, mem int) bool {
	if mem == 0 {
		return false
	}
	got, ok := memoryTokens[t]
	return ok && got == mem
}
