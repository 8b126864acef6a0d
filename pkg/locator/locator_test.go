package locator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/appcheck/pkg/core"
	"github.com/devicelab-dev/appcheck/pkg/driver/mock"
)

func newResolver(s core.Session) *Resolver {
	return New(s, nil).WithInterval(time.Millisecond)
}

func TestResolveFirstMatchShortCircuits(t *testing.T) {
	s := mock.New()
	second := core.XPath("//*[@resource-id='grb-close-x']")
	third := core.ID("ifp1")
	el := s.Visible(second)
	s.Visible(third)

	m := newResolver(s).Resolve([]core.Selector{core.ID("grb-close-x"), second, third}, 0, Present)

	require.True(t, m.Found)
	assert.Equal(t, el.ID, m.ElementID)
	assert.Equal(t, second, m.Selector)
	assert.Equal(t, 1, m.Index)
	assert.Len(t, m.Attempted, 2)
	assert.Equal(t, 0, s.Lookups(third))
	assert.NoError(t, m.Err())
}

func TestResolveMiss(t *testing.T) {
	s := mock.New()
	sels := []core.Selector{core.ID("a"), core.AccessibilityID("닫기")}

	m := newResolver(s).Resolve(sels, 0, Present)

	assert.False(t, m.Found)
	assert.Equal(t, -1, m.Index)
	assert.Equal(t, sels, m.Attempted)

	err := m.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrElementNotFound))
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, sels, nf.Attempted)
	assert.Contains(t, err.Error(), "id=a")
	assert.Contains(t, err.Error(), "accessibility id=닫기")
	assert.Equal(t, core.ErrCategoryNotFound, core.CategoryOf(err))
}

func TestResolveEmptyList(t *testing.T) {
	m := newResolver(mock.New()).Resolve(nil, time.Second, Present)
	assert.False(t, m.Found)
	assert.Empty(t, m.Attempted)
}

func TestResolvePollsUntilAppears(t *testing.T) {
	s := mock.New()
	sel := core.ID("groobeeWrap")
	s.Add(sel, &mock.Element{Displayed: true, Enabled: true, AppearAfter: 3})

	m := newResolver(s).Resolve([]core.Selector{sel}, 2*time.Second, Present)

	require.True(t, m.Found)
	assert.Equal(t, 4, s.Lookups(sel))
}

func TestResolveZeroTimeoutProbesOnce(t *testing.T) {
	s := mock.New()
	sel := core.ID("late")
	s.Add(sel, &mock.Element{Displayed: true, AppearAfter: 1})

	m := newResolver(s).Resolve([]core.Selector{sel}, 0, Present)

	assert.False(t, m.Found)
	assert.Equal(t, 1, s.Lookups(sel))
}

func TestResolvePerAttemptTimeout(t *testing.T) {
	s := mock.New()
	r := New(s, nil).WithInterval(5 * time.Millisecond)
	sels := []core.Selector{core.ID("a"), core.ID("b")}

	start := time.Now()
	m := r.Resolve(sels, 40*time.Millisecond, Present)
	elapsed := time.Since(start)

	assert.False(t, m.Found)
	// each attempt gets its own budget
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Greater(t, s.Lookups(sels[0]), 1)
	assert.Greater(t, s.Lookups(sels[1]), 1)
}

func TestResolveConditions(t *testing.T) {
	s := mock.New()
	hidden := core.ID("hidden")
	disabled := core.ID("disabled")
	ready := core.ID("ready")
	s.Add(hidden, &mock.Element{Displayed: false, Enabled: true})
	s.Add(disabled, &mock.Element{Displayed: true, Enabled: false})
	s.Add(ready, &mock.Element{Displayed: true, Enabled: true})
	r := newResolver(s)

	tests := []struct {
		sel  core.Selector
		cond Condition
		want bool
	}{
		{hidden, Present, true},
		{hidden, Visible, false},
		{disabled, Visible, true},
		{disabled, Clickable, false},
		{ready, Clickable, true},
	}
	for _, tt := range tests {
		t.Run(tt.sel.Value+"/"+tt.cond.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve([]core.Selector{tt.sel}, 0, tt.cond).Found)
		})
	}
}

func TestResolveFallsThroughUnsatisfiedCondition(t *testing.T) {
	s := mock.New()
	first := core.ID("btnPermGuideOk")
	second := core.ID("permission_allow_button")
	s.Add(first, &mock.Element{Displayed: false})
	el := s.Add(second, &mock.Element{Displayed: true, Enabled: true})

	m := newResolver(s).Resolve([]core.Selector{first, second}, 0, Clickable)

	require.True(t, m.Found)
	assert.Equal(t, el.ID, m.ElementID)
	assert.Equal(t, 1, m.Index)
}

func TestResolveRecordsTransportError(t *testing.T) {
	s := mock.New()
	s.Err = errors.New("connection refused")

	m := newResolver(s).Resolve([]core.Selector{core.ID("x")}, 0, Present)

	assert.False(t, m.Found)
	require.Error(t, m.LastErr)
	assert.Contains(t, m.Err().Error(), "connection refused")
	assert.True(t, errors.Is(m.Err(), core.ErrElementNotFound))
}

func TestProbes(t *testing.T) {
	s := mock.New()
	s.Visible(core.AccessibilityID("홈"))
	s.Add(core.ID("ghost"), &mock.Element{Displayed: false})
	r := newResolver(s)

	assert.True(t, r.Exists(core.AccessibilityID("홈"), 0))
	assert.True(t, r.IsVisible(core.AccessibilityID("홈"), 0))
	assert.True(t, r.IsClickable(core.AccessibilityID("홈"), 0))
	assert.True(t, r.Exists(core.ID("ghost"), 0))
	assert.False(t, r.IsVisible(core.ID("ghost"), 0))
	assert.False(t, r.Exists(core.ID("nothing"), 0))

	id, err := r.Find(core.AccessibilityID("홈"), 0, Clickable)
	assert.NoError(t, err)
	assert.NotEmpty(t, id)
	_, err = r.Find(core.ID("nothing"), 0, Present)
	assert.Error(t, err)
}

func TestConditionString(t *testing.T) {
	assert.Equal(t, "present", Present.String())
	assert.Equal(t, "visible", Visible.String())
	assert.Equal(t, "clickable", Clickable.String())
}

func TestWaitAnySharedDeadline(t *testing.T) {
	s := mock.New()
	first := core.ID("groobeeWrap")
	third := core.XPath("//*[contains(@resource-id, 'innerWrap')]")
	s.Add(third, &mock.Element{Displayed: true, AppearAfter: 2})

	m := newResolver(s).WaitAny([]core.Selector{first, core.ID("grb-close-x"), third}, time.Second, Present)

	require.True(t, m.Found)
	assert.Equal(t, 2, m.Index)
	assert.Equal(t, third, m.Selector)
	// the first indicator is polled once per round, not for a full timeout
	assert.Equal(t, 3, s.Lookups(first))
}

func TestWaitAnyTimeout(t *testing.T) {
	s := mock.New()
	sels := []core.Selector{core.ID("a"), core.ID("b")}

	m := New(s, nil).WithInterval(5*time.Millisecond).WaitAny(sels, 20*time.Millisecond, Present)

	assert.False(t, m.Found)
	assert.Equal(t, sels, m.Attempted)
	assert.Equal(t, s.Lookups(sels[0]), s.Lookups(sels[1]))
	assert.True(t, errors.Is(m.Err(), core.ErrElementNotFound))
}
