package textfmt

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMarkdownRendersAndSanitizes(t *testing.T) {
	out := string(Markdown("# Title\n\nSome **bold** text.<script>alert(1)</script>"))
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestPlainStripsTags(t *testing.T) {
	assert.Equal(t, "hello world", Plain("  <b>hello</b> <i>world</i> "))
	assert.False(t, strings.Contains(Plain(`<img src=x onerror="alert(1)">ok`), "onerror"))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$42.75", Money(decimal.RequireFromString("42.75")))
	assert.Equal(t, "$1,234.50", Money(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "$10.63", Money(decimal.RequireFromString("10.625")))
	assert.Equal(t, "$0.00", Money(decimal.Zero))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "15%", Percent(decimal.RequireFromString("0.15")))
	assert.Equal(t, "100%", Percent(decimal.NewFromInt(1)))
}

func TestPlainKeepsEntitiesReadable(t *testing.T) {
	assert.Equal(t, "Tom & Jerry", Plain("Tom & Jerry"))
}
