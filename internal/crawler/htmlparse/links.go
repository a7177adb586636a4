package htmlparse

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Links returns the absolute http and https URLs named by <a href> in page,
// resolved against base, without fragments, in document order and without
// duplicates.
func Links(base *url.URL, page string) []*url.URL {
	var links []*url.URL
	seen := make(map[string]struct{})
	z := html.NewTokenizer(strings.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					if u := resolve(base, string(val)); u != nil {
						if _, dup := seen[u.String()]; !dup {
							seen[u.String()] = struct{}{}
							links = append(links, u)
						}
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

func resolve(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	return Normalize(u)
}

// Normalize drops the fragment and returns nil unless u is an absolute http
// or https URL with a host.
func Normalize(u *url.URL) *url.URL {
	if u == nil || u.Host == "" {
		return nil
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil
	}
	clean := *u
	clean.Scheme = scheme
	clean.Fragment = ""
	clean.RawFragment = ""
	return &clean
}
