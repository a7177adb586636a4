// Package htmlparse turns fetched HTML into plain text and outgoing links.
// Cleaning is regular-expression based and tolerant of malformed markup.
package htmlparse

import (
	"regexp"
	"strings"
)

var (
	commentPattern = regexp.MustCompile(`(?s)<!--.*?-->`)
	tagPattern     = regexp.MustCompile(`<.[^<>]*>?`)
	entityPattern  = regexp.MustCompile(`&[^\s].*?;`)

	blockElements = []*regexp.Regexp{
		elementPattern("head"),
		elementPattern("style"),
		elementPattern("script"),
		elementPattern("noscript"),
		elementPattern("svg"),
	}
)

func elementPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)<` + name + `\b.+?` + name + `\s*?>`)
}

// replaceKeepingBreaks replaces each match with a space when it spans a
// line break and removes it otherwise, so words on either side of a removed
// multi-line block do not fuse together.
func replaceKeepingBreaks(re *regexp.Regexp, html string) string {
	return re.ReplaceAllStringFunc(html, func(match string) string {
		if strings.ContainsAny(match, "\r\n") {
			return " "
		}
		return ""
	})
}

func StripComments(html string) string {
	return replaceKeepingBreaks(commentPattern, html)
}

// StripElement removes every name element together with its content.
func StripElement(html, name string) string {
	return replaceKeepingBreaks(elementPattern(name), html)
}

// StripBlockElements removes comments and the head, style, script, noscript
// and svg elements.
func StripBlockElements(html string) string {
	html = StripComments(html)
	for _, re := range blockElements {
		html = replaceKeepingBreaks(re, html)
	}
	return html
}

func StripTags(html string) string {
	return tagPattern.ReplaceAllString(html, "")
}

func StripEntities(html string) string {
	return entityPattern.ReplaceAllString(html, "")
}

// StripHTML reduces a page to its visible text.
func StripHTML(html string) string {
	html = StripBlockElements(html)
	html = StripTags(html)
	return StripEntities(html)
}
