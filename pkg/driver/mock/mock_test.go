package mock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

func TestSessionFindAndClick(t *testing.T) {
	s := New()
	clicked := false
	el := s.Visible(core.ID("alertBtn"))
	el.OnClick = func() { clicked = true }

	id, err := s.FindElement(core.ByID, "alertBtn")
	require.NoError(t, err)
	assert.Equal(t, el.ID, id)

	require.NoError(t, s.ClickElement(id))
	assert.True(t, clicked)
	assert.Equal(t, []string{id}, s.Clicks)
}

func TestSessionNotFound(t *testing.T) {
	s := New()

	_, err := s.FindElement(core.ByID, "missing")
	assert.True(t, errors.Is(err, core.ErrElementNotFound))

	ids, err := s.FindElements(core.ByXPath, "//android.widget.ImageView")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSessionAppearAfter(t *testing.T) {
	s := New()
	sel := core.ID("groobeeWrap")
	s.Add(sel, &Element{Displayed: true, AppearAfter: 2})

	_, err := s.FindElement(sel.Strategy, sel.Value)
	assert.Error(t, err)
	_, err = s.FindElement(sel.Strategy, sel.Value)
	assert.Error(t, err)
	_, err = s.FindElement(sel.Strategy, sel.Value)
	assert.NoError(t, err)
	assert.Equal(t, 3, s.Lookups(sel))
}

func TestSessionRemove(t *testing.T) {
	s := New()
	sel := core.ID("grb-close-x")
	el := s.Visible(sel)
	s.Remove(sel)

	_, err := s.FindElement(sel.Strategy, sel.Value)
	assert.Error(t, err)
	_, err = s.IsElementDisplayed(el.ID)
	assert.True(t, errors.Is(err, core.ErrElementNotFound))
}

func TestSessionSourcesRepeatLast(t *testing.T) {
	s := New()
	s.Sources = []string{"a", "b"}

	for _, want := range []string{"a", "b", "b"} {
		got, err := s.Source()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 3, s.SourceCalls)
}

func TestSessionLost(t *testing.T) {
	s := New()
	s.Err = errors.New("socket hang up")

	_, err := s.FindElement(core.ByID, "x")
	assert.EqualError(t, err, "socket hang up")
	assert.Error(t, s.Tap(1, 2))
	_, _, err = s.WindowSize()
	assert.Error(t, err)
	assert.NoError(t, s.Close())
	assert.True(t, s.Closed)
}

func TestSessionRecordsInput(t *testing.T) {
	s := New()
	el := s.Visible(core.XPath("//android.widget.EditText[@resource-id='username']"))

	require.NoError(t, s.SendKeysToElement(el.ID, "user@"))
	require.NoError(t, s.SendKeysToElement(el.ID, "example.com"))
	assert.Equal(t, "user@example.com", s.Typed[el.ID])

	require.NoError(t, s.ClearElement(el.ID))
	assert.Empty(t, s.Typed[el.ID])

	require.NoError(t, s.PressKeyCode(core.KeyCodeEnter))
	require.NoError(t, s.HideKeyboard())
	assert.Equal(t, []int{66}, s.Keys)
	assert.Equal(t, 1, s.KeyboardHides)
}
