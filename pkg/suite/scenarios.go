package suite

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/artifacts"
	"github.com/devicelab-dev/appcheck/pkg/core"
	"github.com/devicelab-dev/appcheck/pkg/pages"
	"github.com/devicelab-dev/appcheck/pkg/uitree"
)

// Scenario is one end-to-end check run on its own session.
type Scenario struct {
	Name        string
	Description string
	Tags        []string
	Run         func(c *Context) error
}

// HasTag reports whether the scenario carries tag.
func (s Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// WrongPasswordMessage is shown for an unknown account or a wrong password.
const WrongPasswordMessage = "일치하는 계정 정보가 없습니다."

// All returns every scenario in execution order.
func All() []Scenario {
	return []Scenario{
		{Name: "home_page_loaded", Description: "home screen loads after launch", Tags: []string{"home", "smoke"}, Run: homePageLoaded},
		{Name: "home_page_scroll", Description: "home screen scrolls down and back", Tags: []string{"home"}, Run: homePageScroll},

		{Name: "category_tab", Description: "category tab opens the category page", Tags: []string{"gnb", "smoke"}, Run: categoryTab},
		{Name: "search_tab", Description: "search tab opens the search page", Tags: []string{"gnb", "smoke"}, Run: searchTab},
		{Name: "like_tab", Description: "like tab asks for login then shows the wish list", Tags: []string{"gnb", "login"}, Run: likeTab},
		{Name: "gnb_full_navigation", Description: "home, category, search and back home", Tags: []string{"navigation"}, Run: gnbFullNavigation},
		{Name: "rapid_tab_switching", Description: "three fast rounds of tab switches", Tags: []string{"navigation"}, Run: rapidTabSwitching},

		{Name: "search_with_valid_keyword", Description: "keyword search lists matching products", Tags: []string{"search"}, Run: searchWithValidKeyword},

		{Name: "login", Description: "email login with the test account", Tags: []string{"login"}, Run: login},
		{Name: "login_wrong_password", Description: "wrong password shows the account error", Tags: []string{"login", "negative"}, Run: loginWrongPassword},
		{Name: "login_invalid_account", Description: "unknown account shows the account error", Tags: []string{"login", "negative"}, Run: loginInvalidAccount},
		{Name: "login_empty_fields", Description: "empty credentials are rejected before input", Tags: []string{"login", "negative"}, Run: loginEmptyFields},

		{Name: "my_tab_requires_login", Description: "my tab asks for login when logged out", Tags: []string{"my_tab"}, Run: myTabRequiresLogin},
		{Name: "my_tab_after_login", Description: "my tab shows my page after login", Tags: []string{"my_tab", "login"}, Run: myTabAfterLogin},

		{Name: "broken_images_home", Description: "no broken images on the first home screen", Tags: []string{"images"}, Run: brokenImagesHome},
		{Name: "broken_images_home_scroll", Description: "no broken images on the whole home page", Tags: []string{"images", "slow"}, Run: brokenImagesHomeScroll},
		{Name: "broken_images_category_scroll", Description: "category page images, findings only warn", Tags: []string{"images", "slow"}, Run: brokenImagesCategoryScroll},
		{Name: "broken_images_home_quick", Description: "home tab scan over three scrolls", Tags: []string{"images", "quick"}, Run: quickScan("home", pages.TabHome, 3)},
		{Name: "broken_images_category_quick", Description: "category tab scan over five scrolls", Tags: []string{"images", "quick"}, Run: quickScan("category", pages.TabCategory, 5)},

		{Name: "screen_state_debug", Description: "dump what is on screen right now", Tags: []string{"debug"}, Run: screenStateDebug},
		{Name: "extract_source", Description: "save the UI tree and list labeled elements", Tags: []string{"debug"}, Run: extractSource},
		{Name: "extract_gnb_source", Description: "save the navigation bar subtree", Tags: []string{"debug"}, Run: extractGNBSource},
	}
}

func homePageLoaded(c *Context) error {
	if err := Assert(c.Home.IsVisible(), "home page did not load"); err != nil {
		return err
	}
	c.Screenshot("home_page_loaded")
	return nil
}

func homePageScroll(c *Context) error {
	if err := Assert(c.Home.IsVisible(), "home page is not visible"); err != nil {
		return err
	}
	c.Screenshot("home_scroll_01_top")

	for i, name := range []string{"home_scroll_02_after_swipe1", "home_scroll_03_after_swipe2"} {
		err := c.Step(fmt.Sprintf("swipe up %d", i+1), func() error {
			if err := c.Home.SwipeUp(); err != nil {
				return err
			}
			c.Pause(time.Second)
			c.Screenshot(name)
			return nil
		})
		if err != nil {
			return err
		}
	}

	return c.Step("back to top", func() error {
		for i := 0; i < 2; i++ {
			if err := c.Home.SwipeDown(); err != nil {
				return err
			}
		}
		c.Pause(time.Second)
		c.Screenshot("home_scroll_04_back_to_top")
		return nil
	})
}

func categoryTab(c *Context) error {
	if err := c.Home.ClickCategoryTab(); err != nil {
		return err
	}
	if err := Assert(c.Category.IsVisible(), "category page did not load"); err != nil {
		return err
	}
	c.Screenshot("woongjin_category_page")
	return nil
}

func searchTab(c *Context) error {
	if err := c.Home.ClickSearchTab(); err != nil {
		return err
	}
	if err := Assert(c.Search.IsVisible(), "search page is not visible"); err != nil {
		return err
	}
	c.Pause(2 * time.Second)
	c.Screenshot("woongjin_search_page")
	return nil
}

// openEmailLogin goes from home to the email login form through tab.
func openEmailLogin(c *Context, tab func() error) error {
	if err := c.Step("open login", func() error {
		if err := tab(); err != nil {
			return err
		}
		return Assert(c.Login.IsVisible(), "login page is not visible")
	}); err != nil {
		return err
	}
	if err := c.Step("login types", func() error {
		return Assert(c.Login.LoginTypesAreVisible(), "login types are not visible")
	}); err != nil {
		return err
	}
	return c.Step("open email login", func() error {
		if err := c.Login.ClickEmailLogin(); err != nil {
			return err
		}
		return Assert(c.Login.EmailLoginPageIsVisible(), "email login page is not visible")
	})
}

func likeTab(c *Context) error {
	acc, err := c.ValidAccount()
	if err != nil {
		return err
	}
	if err := openEmailLogin(c, c.Home.ClickLikeTab); err != nil {
		return err
	}
	if err := c.Step("email login", func() error {
		if err := c.Login.EmailLogin(acc.UserID, acc.Password); err != nil {
			return err
		}
		c.WaitForLoading()
		c.Screenshot("woongjin_logged_in_home_page")
		return nil
	}); err != nil {
		return err
	}
	return c.Step("like page", func() error {
		if err := Assert(c.Like.IsVisible(), "like page is not visible"); err != nil {
			return err
		}
		c.Screenshot("woongjin_like_page")
		return nil
	})
}

func gnbFullNavigation(c *Context) error {
	if err := Assert(c.Home.IsVisible(), "home page is not visible"); err != nil {
		return err
	}
	c.Screenshot("nav_01_home")

	hops := []struct {
		name  string
		click func() error
		page  pages.Page
		shot  string
	}{
		{"category", c.Home.ClickCategoryTab, c.Category, "nav_02_category"},
		{"search", c.Home.ClickSearchTab, c.Search, "nav_03_search"},
		{"home", c.Home.ClickHomeTab, c.Home, "nav_04_home_return"},
	}
	for _, hop := range hops {
		err := c.Step("go to "+hop.name, func() error {
			if err := hop.click(); err != nil {
				return err
			}
			c.Pause(time.Second)
			if err := Assert(hop.page.IsVisible(), "%s page is not visible", hop.page.Name()); err != nil {
				return err
			}
			c.Screenshot(hop.shot)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func rapidTabSwitching(c *Context) error {
	if err := Assert(c.Home.IsVisible(), "home page is not visible"); err != nil {
		return err
	}
	for round := 1; round <= 3; round++ {
		err := c.Step(fmt.Sprintf("round %d", round), func() error {
			for _, click := range []func() error{c.Home.ClickCategoryTab, c.Home.ClickSearchTab, c.Home.ClickHomeTab} {
				if err := click(); err != nil {
					return err
				}
				c.Pause(500 * time.Millisecond)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	if err := Assert(c.Home.IsVisible(), "home page is not visible after switching tabs"); err != nil {
		return err
	}
	c.Screenshot("rapid_tab_switching_complete")
	return nil
}

func searchWithValidKeyword(c *Context) error {
	const keyword = "책"

	if err := c.Home.ClickSearchTab(); err != nil {
		return err
	}
	if err := c.Step("search "+keyword, func() error {
		if err := c.Search.EnterSearchText(keyword); err != nil {
			return err
		}
		return c.Search.Submit()
	}); err != nil {
		return err
	}
	if err := Assert(c.Search.IsResultPresent(keyword), "no result contains %q", keyword); err != nil {
		return err
	}
	c.Pause(2 * time.Second)
	c.Screenshot("woongjin_search_results")
	return nil
}

func login(c *Context) error {
	acc, err := c.ValidAccount()
	if err != nil {
		return err
	}
	if err := openEmailLogin(c, c.Home.ClickLikeTab); err != nil {
		return err
	}
	return c.Step("email login", func() error {
		if err := c.Login.EmailLogin(acc.UserID, acc.Password); err != nil {
			return err
		}
		c.WaitForLoading()
		c.Screenshot("woongjin_logged_in_home_page")
		return nil
	})
}

// rejectedLogin submits credentials the server refuses and checks the error.
func rejectedLogin(c *Context, userID, password string) error {
	if err := openEmailLogin(c, c.Home.ClickLikeTab); err != nil {
		return err
	}
	if err := c.Step("submit", func() error {
		if err := c.Login.EmailLogin(userID, password); err != nil {
			return err
		}
		return Assert(c.Login.EmailLoginPageIsVisible(), "left the email login page")
	}); err != nil {
		return err
	}
	return c.Step("error message", func() error {
		msg := c.Login.ErrorMessage()
		if err := Assert(strings.Contains(msg, WrongPasswordMessage), "error message %q does not contain %q", msg, WrongPasswordMessage); err != nil {
			return err
		}
		return c.Login.CloseErrorPopup()
	})
}

func loginWrongPassword(c *Context) error {
	valid, err := c.ValidAccount()
	if err != nil {
		return err
	}
	wrong, err := c.InvalidAccount()
	if err != nil {
		return err
	}
	return rejectedLogin(c, valid.UserID, wrong.Password)
}

func loginInvalidAccount(c *Context) error {
	valid, err := c.ValidAccount()
	if err != nil {
		return err
	}
	wrong, err := c.InvalidAccount()
	if err != nil {
		return err
	}
	return rejectedLogin(c, wrong.UserID, valid.Password)
}

func loginEmptyFields(c *Context) error {
	if err := openEmailLogin(c, c.Home.ClickLikeTab); err != nil {
		return err
	}
	rejected := c.Login.EmailLogin("", "")
	if err := Assert(errors.Is(rejected, core.ErrInvalidEmail), "empty credentials were not rejected locally: %v", rejected); err != nil {
		return err
	}
	return Assert(c.Login.EmailLoginPageIsVisible(), "left the email login page")
}

func myTabRequiresLogin(c *Context) error {
	if err := Assert(c.Home.IsVisible(), "home page is not visible"); err != nil {
		return err
	}
	if err := c.Home.ClickMyTab(); err != nil {
		return err
	}
	c.Pause(time.Second)
	if err := Assert(c.Login.IsVisible(), "login page is not visible"); err != nil {
		return err
	}
	c.Screenshot("my_tab_login_required")
	return nil
}

func myTabAfterLogin(c *Context) error {
	acc, err := c.ValidAccount()
	if err != nil {
		return err
	}
	if err := c.Step("open login", func() error {
		if err := c.Home.ClickMyTab(); err != nil {
			return err
		}
		c.Pause(time.Second)
		return Assert(c.Login.IsVisible(), "login page is not visible")
	}); err != nil {
		return err
	}
	if err := c.Step("email login", func() error {
		if err := c.Login.ClickEmailLogin(); err != nil {
			return err
		}
		if err := c.Login.EmailLogin(acc.UserID, acc.Password); err != nil {
			return err
		}
		c.WaitForLoading()
		return nil
	}); err != nil {
		return err
	}
	if err := Assert(c.MyTab.IsVisible(), "my page is not visible"); err != nil {
		return err
	}
	c.Screenshot("my_tab_page_logged_in")
	return nil
}

func brokenImagesHome(c *Context) error {
	rep, err := c.BrokenImages("home_broken_images_report", pages.ScanOptions{WaitForLoad: true})
	if err != nil {
		return err
	}
	return Assert(len(rep.Records) == 0, "%d broken images on the home screen", len(rep.Records))
}

func brokenImagesHomeScroll(c *Context) error {
	rep, err := c.BrokenImages("home_full_scroll_report", pages.ScanOptions{Scroll: true, MaxScrolls: 5})
	if err != nil {
		return err
	}
	return Assert(len(rep.Records) == 0, "%d broken images across the home page", len(rep.Records))
}

func brokenImagesCategoryScroll(c *Context) error {
	if err := c.Home.ClickCategoryTab(); err != nil {
		return err
	}
	c.Pause(2 * time.Second)
	if err := Assert(c.Category.IsVisible(), "category page did not load"); err != nil {
		return err
	}

	rep, err := c.BrokenImages("category_full_scroll_report", pages.ScanOptions{Scroll: true, MaxScrolls: 10})
	if err != nil {
		return err
	}
	if n := len(rep.Records); n > 0 {
		return Skip("warning: %d broken images on the category page", n)
	}
	return nil
}

func quickScan(tab string, sel core.Selector, scrolls int) func(*Context) error {
	return func(c *Context) error {
		if err := c.Home.Click(sel); err != nil {
			return err
		}
		c.Pause(2 * time.Second)

		rep, err := c.BrokenImages(tab+"_quick_scroll_report", pages.ScanOptions{Scroll: true, MaxScrolls: scrolls})
		if err != nil {
			return err
		}
		c.Log().Info("quick scan", zap.String("tab", tab), zap.Int("broken", len(rep.Records)))
		return nil
	}
}

func screenStateDebug(c *Context) error {
	screen, err := artifacts.Screen(c.Session)
	if err != nil {
		return err
	}
	w, h, err := c.Session.WindowSize()
	if err != nil {
		return err
	}
	c.Screenshot("current_screen")

	path, source, err := c.Store.SavePageSource(c.Session, "current_screen")
	if err != nil {
		return err
	}
	c.Attach(core.NewHierarchyAttachment(path))

	tree, err := uitree.Parse(source)
	if err != nil {
		return err
	}
	count := func(class string) int {
		return len(tree.Find(func(n *uitree.Node) bool { return n.Class == class }))
	}
	clickable := tree.Find(func(n *uitree.Node) bool { return n.Clickable })

	c.Log().Info("screen state",
		zap.Stringer("screen", screen),
		zap.String("size", fmt.Sprintf("%dx%d", w, h)),
		zap.Int("elements", len(tree.Nodes)),
		zap.Int("views", count("android.view.View")),
		zap.Int("view_groups", count("android.view.ViewGroup")),
		zap.Int("text_views", count("android.widget.TextView")),
		zap.Int("clickable", len(clickable)),
		zap.Int("web_views", count("android.webkit.WebView")),
		zap.Int("image_views", count("android.widget.ImageView")))

	texts := tree.Find(func(n *uitree.Node) bool { return n.Class == "android.widget.TextView" && n.Text != "" })
	uitree.WriteTable(c.Out, texts, 5)
	return nil
}

func extractSource(c *Context) error {
	path, source, err := c.Store.SavePageSource(c.Session, "woongjin_app_source")
	if err != nil {
		return err
	}
	c.Attach(core.NewHierarchyAttachment(path))

	tree, err := uitree.Parse(source)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Out, "labeled elements")
	uitree.WriteTable(c.Out, tree.Labeled(), 50)
	fmt.Fprintln(c.Out, "elements with content-desc")
	uitree.WriteTable(c.Out, tree.WithContentDesc(), 0)
	fmt.Fprintln(c.Out, "elements with text")
	uitree.WriteTable(c.Out, tree.WithText(), 20)
	return nil
}

func extractGNBSource(c *Context) error {
	path, ext, err := c.Store.SaveGNBSource(c.Session, "gnb_only")
	if err != nil {
		return err
	}
	c.Attach(core.NewHierarchyAttachment(path))
	if !ext.Found {
		c.Log().Warn("navigation bar not found, full source saved", zap.String("path", path))
		return nil
	}

	tree, err := uitree.Parse("<hierarchy>" + ext.XML + "</hierarchy>")
	if err != nil {
		return err
	}
	gnb, _ := tree.FindGNB()
	if gnb == nil {
		return fmt.Errorf("navigation bar missing from %s", path)
	}
	fmt.Fprintf(c.Out, "navigation bar (%s)\n", ext.Pattern)
	uitree.WriteTable(c.Out, gnb.Descendants(), 0)
	return nil
}
