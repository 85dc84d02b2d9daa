package catalog

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/senoxone/qbshop/internal/normalize"
)

// RawOffer is one unprocessed catalog card as found on a listing page.
type RawOffer struct {
	Title    string
	URL      string
	Price    int64
	Status   normalize.Status
	Cashback string
	ImageURL string
}

const (
	// maxBlockDepth bounds the ancestor walk from a title anchor to the
	// card block that carries the price.
	maxBlockDepth = 14
)

var (
	priceRE    = regexp.MustCompile(`(\d[\d\s]*)\s*₽`)
	cashbackRE = regexp.MustCompile(`(кешбек|кэшбек|кэшбэк|cashback)\s*\+?\s*([0-9]+)`)
	pageQryRE  = regexp.MustCompile(`[?&]page=(\d+)`)
	pagePathRE = regexp.MustCompile(`/page/(\d+)/`)
)

// imageAttrs lists image source attributes in preference order: deferred-load
// attributes before the immediate src, which on listing pages is often a
// placeholder.
var imageAttrs = []string{"data-src", "data-original", "data-lazy-src", "src"}

// ParsePage extracts raw offers from a catalog listing page. Anchors whose
// visible text starts with titlePrefix identify cards; the surrounding block
// is found by walking ancestors until a price token appears. Malformed cards
// are skipped, never fatal.
func ParsePage(html, titlePrefix, baseURL string) []RawOffer {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []RawOffer
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		title := collapseText(a.Text())
		if !strings.HasPrefix(title, titlePrefix) {
			return
		}
		href, _ := a.Attr("href")
		offerURL := absURL(baseURL, href)

		block := a
		blockText := ""
		for i := 0; i < maxBlockDepth; i++ {
			blockText = blockContent(block)
			if priceRE.MatchString(blockText) {
				break
			}
			parent := block.Parent()
			if parent.Length() == 0 {
				break
			}
			block = parent
		}

		m := priceRE.FindStringSubmatch(blockText)
		if m == nil {
			return
		}
		price, err := strconv.ParseInt(strings.ReplaceAll(m[1], " ", ""), 10, 64)
		if err != nil {
			return
		}

		out = append(out, RawOffer{
			Title:    title,
			URL:      offerURL,
			Price:    price,
			Status:   normalize.ParseStockStatus(blockText),
			Cashback: parseCashback(blockText),
			ImageURL: extractImage(block, baseURL),
		})
	})
	return out
}

// DetectPages returns the page count advertised by pagination links.
func DetectPages(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 1
	}

	max := 1
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		for _, re := range []*regexp.Regexp{pageQryRE, pagePathRE} {
			if m := re.FindStringSubmatch(href); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > max {
					max = n
				}
			}
		}
	})
	return max
}

// ImageFromProductPage pulls the primary product image from a detail page's
// social-preview metadata.
func ImageFromProductPage(html, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	for _, sel := range []string{
		"meta[property='og:image']",
		"meta[name='twitter:image']",
		"meta[property='og:image:url']",
	} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok && content != "" {
			return absURL(baseURL, content)
		}
	}
	return ""
}

func extractImage(block *goquery.Selection, baseURL string) string {
	found := ""
	block.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		for _, attr := range imageAttrs {
			val, ok := img.Attr(attr)
			if !ok || val == "" {
				continue
			}
			if strings.Contains(strings.ToLower(val), "logo") {
				continue
			}
			found = absURL(baseURL, val)
			return false
		}
		return true
	})
	return found
}

func parseCashback(blockText string) string {
	if m := cashbackRE.FindStringSubmatch(normalize.Normalize(blockText)); m != nil {
		// Render the way the site does, regardless of the spelling found.
		return "Кешбек + " + m[2]
	}
	return ""
}

func absURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func collapseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func blockContent(sel *goquery.Selection) string {
	return strings.ReplaceAll(sel.Text(), " ", " ")
}
