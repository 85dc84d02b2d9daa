package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/senoxone/qbshop/internal/normalize"
)

var (
	physCountRE = regexp.MustCompile(`\b([0-9])\s*шт`)
	bareDigitRE = regexp.MustCompile(`\b([0-9])\b`)
)

// specLineMaxLen filters out container elements whose text is the whole
// page rather than a single characteristics row.
const specLineMaxLen = 200

// SIMFromProductPage extracts the SIM configuration from a product detail
// page. Structured characteristics rows (physical SIM count, eSIM support)
// are tried first; when absent it falls back to the same text heuristics the
// title-level classifier uses.
func SIMFromProductPage(html string) (normalize.SIM, int) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return normalize.SIMUnknown, 0
	}

	physLine, esimLine := "", ""
	doc.Find("tr, li, p").Each(func(_ int, row *goquery.Selection) {
		line := normalize.Normalize(row.Text())
		if line == "" || len(line) > specLineMaxLen {
			return
		}
		if strings.Contains(line, "количество и тип физических sim") {
			physLine = line
		}
		if strings.Contains(line, "поддержка esim") || strings.Contains(line, "поддержка e-sim") {
			esimLine = line
		}
	})

	physCount := -1
	if physLine != "" {
		m := physCountRE.FindStringSubmatch(physLine)
		if m == nil {
			m = bareDigitRE.FindStringSubmatch(physLine)
		}
		if m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				physCount = n
			}
		}
	}

	// -1 means the row said nothing either way.
	hasESIM := -1
	if esimLine != "" {
		for _, w := range []string{" да", " есть", "поддерживает"} {
			if strings.Contains(esimLine, w) {
				hasESIM = 1
			}
		}
		for _, w := range []string{" нет", "не поддерживает"} {
			if strings.Contains(esimLine, w) {
				hasESIM = 0
			}
		}
	}

	if physCount >= 0 || hasESIM >= 0 {
		if physCount >= 2 {
			return normalize.SIMDual, physCount
		}
		if physCount == 1 && hasESIM == 1 {
			return normalize.SIMPlusE, 0
		}
		if physCount <= 0 && hasESIM == 1 {
			return normalize.SIMEOnly, 0
		}
		// One physical SIM with eSIM explicitly absent has no category of
		// its own and stays unknown.
		if physCount == 1 && hasESIM == 0 {
			return normalize.SIMUnknown, 0
		}
	}

	tx := normalize.Normalize(doc.Text())
	if strings.Contains(tx, "sim + esim") || strings.Contains(tx, "sim + e-sim") || strings.Contains(tx, "sim+e-sim") {
		return normalize.SIMPlusE, 0
	}
	if strings.Contains(tx, "dual sim") || strings.Contains(tx, "dualsim") ||
		strings.Contains(tx, "2 sim") || strings.Contains(tx, "2-sim") || strings.Contains(tx, "2sim") {
		return normalize.SIMDual, 2
	}
	if strings.Contains(tx, "esim") || strings.Contains(tx, "e-sim") || strings.Contains(tx, "e sim") {
		return normalize.SIMEOnly, 0
	}
	return normalize.SIMUnknown, 0
}
