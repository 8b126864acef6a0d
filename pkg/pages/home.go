package pages

import (
	"time"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

// Home screen locators.
var (
	HomeSearchButton = core.XPath("//android.widget.Button[@content-desc='검색어를 입력해 주세요.']")
	HomeLogo         = core.XPath("//android.widget.TextView[@text='웅진마켓로고']")

	// GNB tabs
	TabHome     = core.AccessibilityID("홈")
	TabCategory = core.AccessibilityID("카테고리")
	TabSearch   = core.AccessibilityID("검색")
	TabLike     = core.AccessibilityID("찜")
	TabMy       = core.AccessibilityID("마이")
)

// HomePage is the landing screen with the GNB.
type HomePage struct {
	Base
}

// NewHomePage creates the home page.
func NewHomePage(env Env) *HomePage {
	return &HomePage{Base: newBase("home", env)}
}

// IsVisible reports whether the home logo is shown.
func (p *HomePage) IsVisible() bool {
	return p.IsElementVisible(HomeLogo)
}

func (p *HomePage) ClickSearch() error      { return p.Click(HomeSearchButton) }
func (p *HomePage) ClickHomeTab() error     { return p.Click(TabHome) }
func (p *HomePage) ClickCategoryTab() error { return p.Click(TabCategory) }
func (p *HomePage) ClickLikeTab() error     { return p.Click(TabLike) }
func (p *HomePage) ClickMyTab() error       { return p.Click(TabMy) }

// ClickSearchTab waits a second for the GNB to settle before clicking.
func (p *HomePage) ClickSearchTab() error {
	p.sleep(time.Second)
	return p.Click(TabSearch)
}
