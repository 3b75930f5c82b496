// Package textfmt renders user-authored text for the views: markdown descriptions, plain-text
// comments, and money amounts.
package textfmt

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	md = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))

	ugc    = newDescriptionPolicy()
	strict = bluemonday.StrictPolicy()

	printer = message.NewPrinter(language.AmericanEnglish)
)

func newDescriptionPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// Markdown converts a book description to sanitized HTML.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(ugc.SanitizeBytes(buf.Bytes()))
}

// Plain strips every tag, leaving text that is stored as-is and escaped on output.
func Plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Money formats an amount as US dollars with thousands separators, e.g. "$1,234.50".
func Money(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	if f < 0 {
		return printer.Sprintf("-$%.2f", -f)
	}
	return printer.Sprintf("$%.2f", f)
}

// Percent renders a 0..1 fraction as a whole-number percentage such as "15%".
func Percent(fraction decimal.Decimal) string {
	return fraction.Mul(decimal.NewFromInt(100)).Round(0).String() + "%"
}
