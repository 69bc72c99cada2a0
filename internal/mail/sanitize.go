package mail

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	htmlPolicyOnce sync.Once
	htmlPolicy     *bluemonday.Policy
	stripPolicy    = bluemonday.StripTagsPolicy()

	scriptStyle = regexp.MustCompile(`(?i)<(script|style)[^>]*>[\s\S]*?</(script|style)>`)
)

var inlineStyles = []string{
	"color", "background-color",
	"font-family", "font-size", "font-style", "font-weight",
	"text-align", "text-decoration", "line-height", "vertical-align",
	"margin", "margin-top", "margin-right", "margin-bottom", "margin-left",
	"padding", "padding-top", "padding-right", "padding-bottom", "padding-left",
	"border", "border-collapse", "border-color", "border-style", "border-width",
	"width", "height",
}

func policy() *bluemonday.Policy {
	htmlPolicyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowStyling()
		// every inline declaration goes through bluemonday's CSS value checks;
		// layout properties such as position and z-index are dropped
		p.AllowStyles(inlineStyles...).Globally()
		p.AllowAttrs("width", "height", "align", "valign", "bgcolor", "border", "cellpadding", "cellspacing").OnElements("table", "td", "th", "tr", "img")
		p.AllowDataURIImages()
		p.AllowURLSchemes("cid", "http", "https", "mailto")
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		htmlPolicy = p
	})
	return htmlPolicy
}

// SanitizeHTML removes scripts, event handlers and other active content from
// an inbound HTML body while keeping its formatting
func SanitizeHTML(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return policy().Sanitize(body)
}

// PlainText reduces an HTML body to whitespace-collapsed text
func PlainText(body string) string {
	body = scriptStyle.ReplaceAllString(body, "")
	body = stripPolicy.Sanitize(body)
	body = html.UnescapeString(body)
	return strings.Join(strings.Fields(body), " ")
}
