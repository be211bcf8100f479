package checker

import (
	"regexp"
	"strings"
)

var (
	hrefPattern  = regexp.MustCompile(`href=['"]?([^'" >]+)`)
	titlePattern = regexp.MustCompile(`(?i)<title>(.*?)</title>`)
)

// DownloadExtensions are the markers that flag a link as a file download.
var DownloadExtensions = []string{".exe", ".pdf", ".zip", ".rar"}

// ExtractLinks returns every href value in body in order of appearance.
// Duplicates are kept.
func ExtractLinks(body string) []string {
	matches := hrefPattern.FindAllStringSubmatch(body, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		links = append(links, m[1])
	}
	return links
}

// ExtractTitle returns the inner text of the first <title> element.
// The match is case-insensitive and does not cross line breaks.
func ExtractTitle(body string) (string, bool) {
	m := titlePattern.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsDownloadLink reports whether link contains one of DownloadExtensions
// anywhere, not only at the end.
func IsDownloadLink(link string) bool {
	for _, ext := range DownloadExtensions {
		if strings.Contains(link, ext) {
			return true
		}
	}
	return false
}

// FirstUntrustedDownload scans links in order and returns the first download
// link whose domain is outside origin's trust group.
func FirstUntrustedDownload(links []string, origin string, related Relation) (string, bool) {
	if related == nil {
		related = SameGroup
	}
	for _, link := range links {
		if !IsDownloadLink(link) {
			continue
		}
		if !related(DomainOf(link), origin) {
			return link, true
		}
	}
	return "", false
}
