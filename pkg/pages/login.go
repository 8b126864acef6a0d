package pages

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

// Login screen locators.
var (
	LoginPageTitle   = core.XPath("//android.widget.TextView[@text='로그인']")
	KakaoLoginButton = core.XPath("//android.widget.TextView[@text='카카오 로그인']")
	NaverLoginButton = core.XPath("//android.widget.TextView[@text='네이버 로그인']")
	EmailLoginButton = core.XPath("//android.widget.TextView[@text='이메일 로그인']")

	EmailLoginTitle = core.XPath("//android.widget.TextView[contains(@text,'이메일 로그인을 해주세요')]")
	UserIDInput     = core.XPath("//android.widget.EditText[@resource-id='username']")
	PasswordInput   = core.XPath("//android.widget.EditText[@resource-id='password']")
	LoginButton     = core.XPath("//android.widget.Button[@resource-id='emailLoginBtn']")

	InvalidAccountMessage     = core.XPath("//android.widget.TextView[@text='일치하는 계정 정보가 없습니다.']")
	InvalidCredentialsMessage = core.XPath("//android.widget.TextView[@text='아이디 또는 비밀번호를 확인해주세요!.']")
	ErrorPopupButton          = core.ID("alertBtn")
)

// MinPasswordLength is the shortest password the app accepts.
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateCredentials rejects malformed input without touching the device.
func ValidateCredentials(userID, password string) error {
	if !emailPattern.MatchString(userID) {
		return core.ErrInvalidEmail.WithMessage(fmt.Sprintf("not a valid email address: %q", userID))
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return core.ErrPasswordTooShort
	}
	return nil
}

// LoginPage covers the login method picker and the email login form.
type LoginPage struct {
	Base
}

// NewLoginPage creates the login page.
func NewLoginPage(env Env) *LoginPage {
	return &LoginPage{Base: newBase("login", env)}
}

// IsVisible reports whether the login title is shown.
func (p *LoginPage) IsVisible() bool {
	return p.IsElementVisible(LoginPageTitle)
}

// LoginTypesAreVisible reports whether the kakao, naver and email buttons are all shown.
func (p *LoginPage) LoginTypesAreVisible() bool {
	return p.IsElementVisible(KakaoLoginButton) &&
		p.IsElementVisible(NaverLoginButton) &&
		p.IsElementVisible(EmailLoginButton)
}

func (p *LoginPage) ClickEmailLogin() error { return p.Click(EmailLoginButton) }

// EmailLoginPageIsVisible reports whether the email form is shown.
func (p *LoginPage) EmailLoginPageIsVisible() bool {
	return p.IsElementVisible(EmailLoginTitle)
}

func (p *LoginPage) EnterUserID(userID string) error {
	if err := p.Click(UserIDInput); err != nil {
		return err
	}
	return p.InputText(UserIDInput, userID)
}

func (p *LoginPage) EnterPassword(password string) error {
	if err := p.Click(PasswordInput); err != nil {
		return err
	}
	return p.InputText(PasswordInput, password)
}

func (p *LoginPage) ClickLoginButton() error { return p.Click(LoginButton) }

// EmailLogin validates the credentials locally, fills the form and submits it.
// Invalid input is rejected before any UI call.
func (p *LoginPage) EmailLogin(userID, password string) error {
	if err := ValidateCredentials(userID, password); err != nil {
		p.log.Warn("credentials rejected", zap.Error(err))
		return err
	}
	if err := p.EnterUserID(userID); err != nil {
		return err
	}
	if err := p.EnterPassword(password); err != nil {
		return err
	}
	if err := p.session.HideKeyboard(); err != nil {
		p.log.Debug("keyboard not hidden", zap.Error(err))
	}
	return p.ClickLoginButton()
}

// ErrorMessage returns the login error shown, or "" when there is none.
func (p *LoginPage) ErrorMessage() string {
	for _, sel := range []core.Selector{InvalidAccountMessage, InvalidCredentialsMessage} {
		if !p.IsElementVisible(sel) {
			continue
		}
		text, err := p.GetText(sel)
		if err != nil {
			return ""
		}
		return text
	}
	return ""
}

// CloseErrorPopup dismisses the error alert when one is shown.
func (p *LoginPage) CloseErrorPopup() error {
	if !p.IsElementClickable(ErrorPopupButton) {
		return nil
	}
	return p.Click(ErrorPopupButton)
}
