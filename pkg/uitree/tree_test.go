package uitree

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

const homeSource = `<?xml version="1.0" encoding="UTF-8"?>
<hierarchy rotation="0">
  <android.widget.FrameLayout class="android.widget.FrameLayout" bounds="[0,0][1080,1920]" enabled="true" displayed="true">
    <android.widget.ImageView class="android.widget.ImageView" resource-id="banner_img" content-desc="배너" bounds="[0,100][1080,600]" enabled="true" displayed="true"/>
    <android.widget.ImageView class="android.widget.ImageView" resource-id="" bounds="[10,700][10,700]" enabled="true" displayed="false"/>
    <android.widget.TextView class="android.widget.TextView" text="웅진마켓로고" bounds="[20,20][300,80]" enabled="true"/>
    <android.widget.LinearLayout class="android.widget.LinearLayout" resource-id="com.wjthinkbig.woongjinbooks:id/ll_gnb" bounds="[0,1780][1080,1920]" enabled="true">
      <android.widget.Button class="android.widget.Button" content-desc="홈" clickable="true" bounds="[0,1780][216,1920]" enabled="true"/>
      <android.widget.Button class="android.widget.Button" content-desc="카테고리" clickable="true" bounds="[216,1780][432,1920]" enabled="true"/>
    </android.widget.LinearLayout>
  </android.widget.FrameLayout>
</hierarchy>`

func TestParse(t *testing.T) {
	tree, err := Parse(homeSource)
	require.NoError(t, err)

	require.Len(t, tree.Roots, 1)
	assert.Len(t, tree.Nodes, 7)

	img := tree.Nodes[1]
	assert.Equal(t, "android.widget.ImageView", img.Class)
	assert.Equal(t, "banner_img", img.ResourceID)
	assert.Equal(t, "배너", img.ContentDesc)
	assert.Equal(t, core.Bounds{X: 0, Y: 100, Width: 1080, Height: 500}, img.Bounds)
	assert.Equal(t, "[0,100][1080,600]", img.BoundsRaw)
	assert.Equal(t, 1, img.Depth)
	assert.Same(t, tree.Roots[0], img.Parent)

	hidden := tree.Nodes[2]
	assert.False(t, hidden.Displayed)
	assert.Equal(t, 0, hidden.Bounds.Width)

	home := tree.Nodes[5]
	assert.True(t, home.Clickable)
	assert.Equal(t, 2, home.Depth)
}

func TestParseNoHierarchy(t *testing.T) {
	_, err := Parse(`<root><child/></root>`)
	assert.Error(t, err)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(`<hierarchy><android.widget.View`)
	assert.Error(t, err)
}

func TestParseEmptyHierarchy(t *testing.T) {
	tree, err := Parse(`<hierarchy rotation="0"/>`)
	require.NoError(t, err)
	assert.Empty(t, tree.Nodes)
}

func TestParseBounds(t *testing.T) {
	tests := []struct {
		in   string
		want core.Bounds
	}{
		{"[0,0][1080,1920]", core.Bounds{Width: 1080, Height: 1920}},
		{"[10,20][11,21]", core.Bounds{X: 10, Y: 20, Width: 1, Height: 1}},
		{"", core.Bounds{}},
		{"garbage", core.Bounds{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseBounds(tt.in), tt.in)
	}
}

func TestBoundsRoundTrip(t *testing.T) {
	b := ParseBounds("[216,1780][432,1920]")
	assert.Equal(t, "[216,1780][432,1920]", b.AndroidString())
}

func TestFilters(t *testing.T) {
	tree, err := Parse(homeSource)
	require.NoError(t, err)

	assert.Len(t, tree.WithText(), 1)
	assert.Len(t, tree.WithContentDesc(), 3)
	assert.Len(t, tree.Labeled(), 5)

	first := tree.First(func(n *Node) bool { return n.ContentDesc == "카테고리" })
	require.NotNil(t, first)
	assert.Nil(t, tree.First(func(n *Node) bool { return n.Text == "없음" }))

	v, ok := first.Attr("clickable")
	assert.True(t, ok)
	assert.Equal(t, "true", v)
	_, ok = first.Attr("checkable")
	assert.False(t, ok)
}

func TestNodeXML(t *testing.T) {
	tree, err := Parse(homeSource)
	require.NoError(t, err)

	gnb := tree.Nodes[4]
	out, err := gnb.XML()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<android.widget.LinearLayout "))
	assert.Contains(t, out, `content-desc="홈"`)
	assert.Contains(t, out, `content-desc="카테고리"`)
	assert.NotContains(t, out, "웅진마켓로고")

	// serialized subtree parses back when wrapped
	sub, err := Parse("<hierarchy>" + out + "</hierarchy>")
	require.NoError(t, err)
	assert.Len(t, sub.Nodes, 3)
}

func TestWriteTable(t *testing.T) {
	tree, err := Parse(homeSource)
	require.NoError(t, err)

	var buf bytes.Buffer
	WriteTable(&buf, tree.WithContentDesc(), 2)

	out := buf.String()
	assert.Contains(t, out, "CONTENT-DESC")
	assert.Contains(t, out, "배너")
	assert.Contains(t, out, "홈")
	assert.NotContains(t, out, "카테고리")
}
