package services

import (
	"testing"
	"time"

	"coinafrique-scraper/models"
	"coinafrique-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func ptr(s string) *string { return &s }

func TestPriceCFA(t *testing.T) {
	tests := []struct {
		raw  *string
		want int64
		ok   bool
	}{
		{ptr("150 000"), 150000, true},
		{ptr("150 000 CFA"), 150000, true},
		{ptr("1.500.000"), 1500000, true},
		{ptr("1,500,000 FCFA"), 1500000, true},
		{ptr("75 000 F"), 75000, true},
		{ptr("Prix: 15 000 FCFA, négociable"), 15000, true},
		{ptr("0"), 0, true},
		{ptr("Prix sur demande"), 0, false},
		{ptr(""), 0, false},
		{ptr("99999999999999999999999"), 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got := PriceCFA(tt.raw)
		if !tt.ok {
			if got != nil {
				t.Errorf("PriceCFA(%q) = %d; want nil", models.Deref(tt.raw), *got)
			}
			continue
		}
		if got == nil {
			t.Errorf("PriceCFA(%q) = nil; want %d", models.Deref(tt.raw), tt.want)
			continue
		}
		if *got != tt.want {
			t.Errorf("PriceCFA(%q) = %d; want %d", models.Deref(tt.raw), *got, tt.want)
		}
	}
}

func TestCity(t *testing.T) {
	tests := []struct {
		address *string
		want    *string
	}{
		{ptr("Dakar • Médina"), ptr("Dakar")},
		{ptr("Thiès"), ptr("Thiès")},
		{ptr("  Rufisque  "), ptr("Rufisque")},
		{ptr("Mbour, Saly"), ptr("Mbour")},
		{ptr("Pikine | Guédiawaye"), ptr("Pikine")},
		{ptr("Touba/Mbacké"), ptr("Touba")},
		// leftmost separator wins regardless of kind
		{ptr("Dakar, Ouakam - Almadies • Sénégal"), ptr("Dakar")},
		{ptr("Ouest-Foire • Dakar"), ptr("Ouest")},
		{ptr("• Dakar"), ptr("")},
		{ptr("   "), ptr("")},
		{ptr(""), ptr("")},
		{nil, nil},
	}

	for _, tt := range tests {
		got := City(tt.address)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("City(%q) = %q; want nil", models.Deref(tt.address), *got)
		case tt.want != nil && got == nil:
			t.Errorf("City(%q) = nil; want %q", models.Deref(tt.address), *tt.want)
		case tt.want != nil && *got != *tt.want:
			t.Errorf("City(%q) = %q; want %q", models.Deref(tt.address), *got, *tt.want)
		}
	}
}

func TestTitleLen(t *testing.T) {
	tests := []struct {
		title *string
		want  int
	}{
		{ptr("Chiot"), 5},
		{ptr("Bélier à vendre"), 15},
		{ptr(""), 0},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := TitleLen(tt.title); got != tt.want {
			t.Errorf("TitleLen(%q) = %d; want %d", models.Deref(tt.title), got, tt.want)
		}
	}
}

func TestNormalizeBlankCityStillCounts(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := rawSample()[1]
	raw.AddressRaw = ptr("• Médina")

	got := n.Normalize([]*models.RawListing{raw}, NormalizeOptions{})[0]
	if got.City == nil || *got.City != "" {
		t.Fatalf("City = %v; want empty string", got.City)
	}
	// id, source, category, title, address_raw, link, page, scraped_at, city, title_len
	if c := got.NonNullCount(); c != 10 {
		t.Errorf("NonNullCount = %d; want 10", c)
	}
}

func rawSample() []*models.RawListing {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return []*models.RawListing{
		{ID: 3, Source: "coinafrique-sn", Category: "Chiens", Title: ptr("Chiot"), PriceRaw: ptr("150 000 CFA"),
			AddressRaw: ptr("Dakar • Médina"), ImageURL: ptr("https://cdn.example.test/1.jpg"),
			Link: "https://sn.coinafrique.com/annonce/chiens/1", Page: 1, ScrapedAt: at},
		{ID: 2, Source: "coinafrique-sn", Category: "Moutons", Title: ptr("Bélier"),
			Link: "https://sn.coinafrique.com/annonce/moutons/2", Page: 1, ScrapedAt: at},
		{ID: 1, Source: "coinafrique-sn", Category: "Moutons",
			Link: "https://sn.coinafrique.com/annonce/moutons/3", Page: 2, ScrapedAt: at},
	}
}

func TestNormalizeDerivesEveryRecord(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := rawSample()

	got := n.Normalize(raw, NormalizeOptions{})

	if len(got) != len(raw) {
		t.Fatalf("Normalize returned %d listings; want %d", len(got), len(raw))
	}
	first := got[0]
	if first.PriceCFA == nil || *first.PriceCFA != 150000 {
		t.Errorf("PriceCFA = %v; want 150000", first.PriceCFA)
	}
	if models.Deref(first.City) != "Dakar" {
		t.Errorf("City = %q; want Dakar", models.Deref(first.City))
	}
	if first.TitleLen != 5 {
		t.Errorf("TitleLen = %d; want 5", first.TitleLen)
	}
	if first.Link != raw[0].Link || first.ID != 3 {
		t.Errorf("raw columns not carried over: %+v", first.RawListing)
	}

	last := got[2]
	if last.PriceCFA != nil || last.City != nil || last.TitleLen != 0 {
		t.Errorf("empty record derived %+v; want nil/nil/0", last)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := rawSample()
	before := *raw[0]

	got := n.Normalize(raw, NormalizeOptions{})
	got[0].Title = ptr("changed")

	if *raw[0].Title != "Chiot" {
		t.Errorf("input title changed to %q", *raw[0].Title)
	}
	if raw[0].PriceRaw != before.PriceRaw || raw[0].AddressRaw != before.AddressRaw {
		t.Error("input record fields were replaced")
	}
}

func TestNormalizeDropDuplicates(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := rawSample()
	dup := *raw[1]
	raw = append(raw, &dup)

	if got := n.Normalize(raw, NormalizeOptions{}); len(got) != 4 {
		t.Fatalf("without filter: got %d listings; want 4", len(got))
	}
	got := n.Normalize(raw, NormalizeOptions{DropDuplicates: true})
	if len(got) != 3 {
		t.Fatalf("with DropDuplicates: got %d listings; want 3", len(got))
	}
	for i, want := range []int64{3, 2, 1} {
		if got[i].ID != want {
			t.Errorf("got[%d].ID = %d; want %d (first occurrence kept in order)", i, got[i].ID, want)
		}
	}
}

func TestNormalizeDuplicatesDifferingInOneColumnAreKept(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	a := rawSample()[1]
	b := *a
	b.Title = nil

	got := n.Normalize([]*models.RawListing{a, &b}, NormalizeOptions{DropDuplicates: true})
	if len(got) != 2 {
		t.Errorf("got %d listings; want 2", len(got))
	}
}

func TestNormalizeDropNAThreshold(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := rawSample()

	counts := []int{13, 8, 7}
	for i, l := range n.Normalize(raw, NormalizeOptions{}) {
		if got := l.NonNullCount(); got != counts[i] {
			t.Fatalf("listing %d: NonNullCount = %d; want %d", i, got, counts[i])
		}
	}

	tests := []struct {
		thresh float64
		want   int
	}{
		{0, 3},
		{0.5, 3},  // needs 7
		{0.55, 2}, // needs ceil(7.15) = 8
		{0.6, 2},  // needs 8
		{0.7, 1},  // needs 10
		{1.0, 1},  // needs 13
	}
	for _, tt := range tests {
		got := n.Normalize(raw, NormalizeOptions{DropNAThreshold: tt.thresh})
		if len(got) != tt.want {
			t.Errorf("DropNAThreshold=%.2f: got %d listings; want %d", tt.thresh, len(got), tt.want)
		}
	}
}
