package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinafrique-scraper/utils"
)

func TestListPageUsesFirstWorkingPattern(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		// query-style URL missing: only the path-style one answers
		"https://ads.example.test/categorie/chiens/2": catalogPage(
			"/annonce/chiens/a-1",
			"https://ads.example.test/annonce/chiens/b-2",
			"/categorie/chiens?page=3",
			"/annonce/chiens/a-1",
			"https://pub.example.test/promo",
		),
	})
	p := NewPaginator(testSite(), fetcher, utils.NewNopLogger())

	links, err := p.ListPage(context.Background(), testCategory, 2)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://ads.example.test/annonce/chiens/a-1",
		"https://ads.example.test/annonce/chiens/b-2",
		"https://ads.example.test/annonce/chiens/a-1",
	}, links)
	assert.Equal(t, []string{
		"https://ads.example.test/categorie/chiens?page=2",
		"https://ads.example.test/categorie/chiens/2",
	}, fetcher.Calls())
}

func TestListPageStopsAtFirstSuccess(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		"https://ads.example.test/categorie/chiens?page=1": catalogPage(),
		"https://ads.example.test/categorie/chiens/1":      catalogPage("/annonce/chiens/never"),
	})
	p := NewPaginator(testSite(), fetcher, utils.NewNopLogger())

	links, err := p.ListPage(context.Background(), testCategory, 1)

	require.NoError(t, err)
	assert.Empty(t, links, "templates are not merged")
	assert.Len(t, fetcher.Calls(), 1)
}

func TestListPageAllPatternsFail(t *testing.T) {
	p := NewPaginator(testSite(), newFakeFetcher(nil), utils.NewNopLogger())

	links, err := p.ListPage(context.Background(), testCategory, 9)

	require.NoError(t, err)
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

func TestListPageUnknownCategory(t *testing.T) {
	p := NewPaginator(testSite(), newFakeFetcher(nil), utils.NewNopLogger())

	_, err := p.ListPage(context.Background(), "Chats", 1)

	assert.ErrorIs(t, err, ErrUnknownCategory)
}
