package normalize

import (
	"reflect"
	"testing"
)

func TestNormalizeCanonicalizes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Айфон 16 Про Макс", "iphone 16 pro max"},
		{"айфон 15 ПроМакс", "iphone 15 pro max"},
		{"iPhone 14 про-макс", "iphone 14 pro max"},
		{"iPhone 13 мини", "iphone 13 mini"},
		{"iPhone 16 Плюс", "iphone 16 plus"},
		{"iPhone 15 SIM+eSIM", "iphone 15 sim + esim"},
		{"iPhone 15 Dual SIM", "iphone 15 dualsim sim"},
		{"зелёный", "зеленый"},
		{"  iphone   16  ", "iphone 16"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Айфон 16 Про Макс 256 ГБ",
		"iPhone 15 SIM+eSIM",
		"iPhone 15 Dual SIM",
		"iphone промакс",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent on %q: %q != %q", in, once, twice)
		}
	}
}

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"айфон 16,про/макс; 256", []string{"iphone", "16", "pro", "max", "256"}},
		// Aliases glued to punctuation still canonicalize.
		{"айфон,16 про", []string{"iphone", "16", "pro"}},
		{"айфон, 256", []string{"iphone", "256"}},
	}
	for _, c := range cases {
		if got := Tokenize(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseModelMemory(t *testing.T) {
	cases := []struct {
		title     string
		wantModel string
		wantMem   int
	}{
		{"iPhone 16 Pro Max 256 GB Desert Titanium (Пустынный титан)", "iPhone 16 Pro Max", 256},
		{"iPhone 15 128 ГБ Чёрный", "iPhone 15", 128},
		{"iPhone 16e 128 GB White", "iPhone 16e", 128},
		{"iPhone 16 e 128 GB White", "iPhone 16e", 128},
		{"iPhone SE 2022 64 GB Midnight", "iPhone SE 2022", 64},
		{"Чехол для телефона", UnknownModel, 0},
		{"Запчасть 128 GB", UnknownModel, 128},
	}
	for _, c := range cases {
		model, mem := ParseModelMemory(c.title)
		if model != c.wantModel || mem != c.wantMem {
			t.Errorf("ParseModelMemory(%q) = (%q, %d), want (%q, %d)",
				c.title, model, mem, c.wantModel, c.wantMem)
		}
	}
}

func TestParseColors(t *testing.T) {
	title := "iPhone 16 Pro Max 256 GB Пустынный титан (Desert Titanium)"
	if got := ParseColorNative(title); got != "Пустынный титан" {
		t.Errorf("ParseColorNative = %q", got)
	}
	if got := ParseColorEN(title); got != "Desert Titanium" {
		t.Errorf("ParseColorEN = %q", got)
	}

	if got := ParseColorNative("iPhone 15 128 ГБ"); got != "—" {
		t.Errorf("ParseColorNative without tail = %q", got)
	}
	if got := ParseColorEN("iPhone 15 128 ГБ Синий"); got != "—" {
		t.Errorf("ParseColorEN without parenthetical = %q", got)
	}
}

func TestParseStockStatus(t *testing.T) {
	cases := []struct {
		text string
		want Status
	}{
		{"В наличии", StatusInStock},
		{"Есть на складе", StatusInStockAlt},
		{"Под заказ 5 дней", StatusBackorder},
		{"Нет в наличии", StatusOutOfStock},
		{"что-то другое", StatusUnknown},
	}
	for _, c := range cases {
		if got := ParseStockStatus(c.text); got != c.want {
			t.Errorf("ParseStockStatus(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestSIMFromTitle(t *testing.T) {
	cases := []struct {
		title, url string
		want       SIM
		wantCount  int
	}{
		{"iPhone 15 SIM+eSIM", "", SIMPlusE, 0},
		{"iPhone 15 Dual SIM", "", SIMDual, 2},
		{"iPhone 15 eSIM", "", SIMEOnly, 0},
		{"iPhone 15", "https://example.com/iphone-15-dual-sim", SIMDual, 2},
		{"iPhone 15", "https://example.com/iphone-15-esim", SIMEOnly, 0},
		{"iPhone 15", "https://example.com/iphone-15", SIMUnknown, 0},
	}
	for _, c := range cases {
		got, count := SIMFromTitle(c.title, c.url)
		if got != c.want || count != c.wantCount {
			t.Errorf("SIMFromTitle(%q, %q) = (%q, %d), want (%q, %d)",
				c.title, c.url, got, count, c.want, c.wantCount)
		}
	}
}

func TestSIMRankOrder(t *testing.T) {
	if !(SIMDual.Rank() < SIMPlusE.Rank() && SIMPlusE.Rank() < SIMEOnly.Rank() && SIMEOnly.Rank() < SIMUnknown.Rank()) {
		t.Fatal("SIM rank order broken")
	}
}
