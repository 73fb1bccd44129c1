// Package coinafrique defines the CoinAfrique Senegal animal catalog.
package coinafrique

import (
	"coinafrique-scraper/models"
	"coinafrique-scraper/scraper"
)

const (
	Source  = "coinafrique-sn"
	BaseURL = "https://sn.coinafrique.com"
)

const (
	Dogs         models.Category = "Chiens"
	Sheep        models.Category = "Moutons"
	Poultry      models.Category = "Poules-Lapins-Pigeons"
	OtherAnimals models.Category = "Autres animaux"
)

var detailLocators = scraper.LocatorSet{
	Title:   ".hide-on-med-and-down h1",
	Price:   ".hide-on-med-and-down p.price",
	Address: ".hide-on-med-and-down [data-address] span",
	Image:   "div.col:nth-of-type(1) img.ad__card-img",
}

// Site returns a fresh definition of the catalog.
func Site() *scraper.Site {
	otherLocators := detailLocators
	otherLocators.Image = "div.col:nth-of-type(2) img.ad__card-img"

	return &scraper.Site{
		Source:  Source,
		BaseURL: BaseURL,
		PagePatterns: []string{
			"{base}{path}?page={n}",
			"{base}{path}/{n}",
		},
		ListingAnchor:    ".ad__card-description a[href]",
		ListingMarker:    "/annonce/",
		DetailReady:      ".hide-on-med-and-down",
		PrimaryImageMeta: `meta[property="og:image"]`,
		ImageAttrs:       []string{"data-src", "data-lazy", "data-original", "src", "srcset"},
		MultiValueAttr:   "srcset",
		PlaceholderTokens: []string{
			"/static/images/countries/",
			"/static/flags/",
			"/svg",
			"data:image",
		},
		Categories: map[models.Category]scraper.CategoryConfig{
			Dogs:         {Path: "/categorie/chiens", Locators: detailLocators},
			Sheep:        {Path: "/categorie/moutons", Locators: detailLocators},
			Poultry:      {Path: "/categorie/poules-lapins-et-pigeons", Locators: detailLocators},
			OtherAnimals: {Path: "/categorie/autres-animaux", Locators: otherLocators},
		},
	}
}
