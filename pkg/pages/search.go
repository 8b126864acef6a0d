package pages

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/core"
	"github.com/devicelab-dev/appcheck/pkg/locator"
)

// Search screen locators.
var (
	SearchInput       = core.ID("searchInput")
	SearchPageTitle   = core.XPath("//android.widget.TextView[@text='급상승 검색어']")
	SearchBackButton  = core.XPath("//android.widget.Button[@text='뒤로가기']")
	SearchResultItems = core.XPath("//android.widget.TextView[@resource-id='product_name']")
)

// SearchPage is the keyword search screen.
type SearchPage struct {
	Base
}

// NewSearchPage creates the search page.
func NewSearchPage(env Env) *SearchPage {
	return &SearchPage{Base: newBase("search", env)}
}

// IsVisible reports whether the trending keywords title is shown.
func (p *SearchPage) IsVisible() bool {
	return p.IsElementVisible(SearchPageTitle)
}

// EnterSearchText focuses the search input and types keyword.
func (p *SearchPage) EnterSearchText(keyword string) error {
	p.log.Info("entering keyword", zap.String("keyword", keyword))
	if err := p.Click(SearchInput); err != nil {
		return err
	}
	return p.InputText(SearchInput, keyword)
}

// Submit presses Enter.
func (p *SearchPage) Submit() error {
	if err := p.session.PressKeyCode(core.KeyCodeEnter); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}
	return nil
}

// Back leaves the search screen.
func (p *SearchPage) Back() error {
	return p.Click(SearchBackButton)
}

// Results returns the product names listed. A screen with no results, or one
// that could not be read, yields an empty list.
func (p *SearchPage) Results() []string {
	if !p.resolver.Resolve([]core.Selector{SearchResultItems}, p.timeouts.Default, locator.Present).Found {
		p.log.Info("no search results")
		return nil
	}
	ids, err := p.session.FindElements(SearchResultItems.Strategy, SearchResultItems.Value)
	if err != nil {
		p.log.Error("search results unreadable", zap.Error(err))
		return nil
	}

	results := make([]string, 0, len(ids))
	for _, id := range ids {
		text, err := p.session.GetElementText(id)
		if err != nil {
			p.log.Warn("result text unreadable", zap.String("element", id), zap.Error(err))
			continue
		}
		results = append(results, text)
	}
	p.log.Info("search results", zap.Int("count", len(results)))
	return results
}

// ResultsContaining filters the results to those containing keyword.
func (p *SearchPage) ResultsContaining(keyword string) []string {
	var out []string
	for _, r := range p.Results() {
		if strings.Contains(r, keyword) {
			out = append(out, r)
		}
	}
	p.log.Info("results containing keyword", zap.String("keyword", keyword), zap.Int("count", len(out)))
	return out
}

// IsResultPresent reports whether any result contains keyword.
func (p *SearchPage) IsResultPresent(keyword string) bool {
	return len(p.ResultsContaining(keyword)) > 0
}
