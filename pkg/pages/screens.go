package pages

import "github.com/devicelab-dev/appcheck/pkg/core"

// Titles of the simple tab screens.
var (
	CategoryPageTitle   = core.XPath("//android.widget.TextView[@text='카테고리']")
	LikePageTitle       = core.XPath("//android.widget.TextView[contains(@text,'찜한')]")
	LikeAddToCartButton = core.XPath("//android.widget.TextView[@text='담기']")
	MyTabPageTitle      = core.XPath("//android.widget.TextView[contains(@text,'마이페이지')]")
)

// CategoryPage is the category tab.
type CategoryPage struct{ Base }

func NewCategoryPage(env Env) *CategoryPage {
	return &CategoryPage{Base: newBase("category", env)}
}

func (p *CategoryPage) IsVisible() bool { return p.IsElementVisible(CategoryPageTitle) }

// LikePage is the wish list tab, shown only after login.
type LikePage struct{ Base }

func NewLikePage(env Env) *LikePage {
	return &LikePage{Base: newBase("like", env)}
}

func (p *LikePage) IsVisible() bool { return p.IsElementVisible(LikePageTitle) }

// AddToCart clicks the first add-to-cart button.
func (p *LikePage) AddToCart() error { return p.Click(LikeAddToCartButton) }

// MyTabPage is the account tab.
type MyTabPage struct{ Base }

func NewMyTabPage(env Env) *MyTabPage {
	return &MyTabPage{Base: newBase("my_tab", env)}
}

func (p *MyTabPage) IsVisible() bool { return p.IsElementVisible(MyTabPageTitle) }
