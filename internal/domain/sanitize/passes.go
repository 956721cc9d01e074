package sanitize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	toolbarIDMarker = "wm-"
	brandClassMark  = "wayback"
	archiveDomain   = "archive.org"
	archivePathPfx  = "/web/"
)

// navigationTokens mark inline scripts that move the page elsewhere.
var navigationTokens = []string{
	"window.location",
	"document.location",
	"location.href",
	"location.replace",
	"location.assign",
}

// locationAssignment matches a write to any location object, bare or
// qualified (location = x, top.location = x), but not a comparison.
var locationAssignment = regexp.MustCompile(`\blocation\s*=([^=]|$)`)

// Elements whose src/href are absolutized and upgraded.
const resourceSelector = "img, link, script, iframe, frame"

// Stats counts what each pass changed.
type Stats struct {
	ChromeRemoved    int
	RedirectsRemoved int
	URLsRewritten    int
	HeadSynthesized  bool
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

// stripChrome removes the archive toolbar, brand elements and archive scripts.
func stripChrome(doc *goquery.Document) int {
	chrome := doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return containsFold(id, toolbarIDMarker)
	})
	chrome = chrome.AddSelection(doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return containsFold(class, brandClassMark)
	}))
	chrome = chrome.AddSelection(doc.Find("script[src]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		return strings.Contains(src, archiveDomain)
	}))

	n := chrome.Length()
	chrome.Remove()
	return n
}

// suppressRedirects removes meta refresh tags and inline navigation scripts.
func suppressRedirects(doc *goquery.Document) int {
	redirects := doc.Find("meta[http-equiv]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		equiv, _ := s.Attr("http-equiv")
		return strings.EqualFold(strings.TrimSpace(equiv), "refresh")
	})
	redirects = redirects.AddSelection(doc.Find("script").FilterFunction(func(_ int, s *goquery.Selection) bool {
		body := strings.ToLower(s.Text())
		if body == "" {
			return false
		}
		for _, token := range navigationTokens {
			if strings.Contains(body, token) {
				return true
			}
		}
		return locationAssignment.MatchString(body)
	}))

	n := redirects.Length()
	redirects.Remove()
	return n
}

// absolutizeURLs points root-relative archive paths at origin and upgrades
// http values to https.
func absolutizeURLs(doc *goquery.Document, origin string) int {
	rewritten := 0
	doc.Find(resourceSelector).Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "href"} {
			value, ok := s.Attr(attr)
			if !ok {
				continue
			}
			switch {
			case strings.HasPrefix(value, archivePathPfx):
				s.SetAttr(attr, origin+value)
				rewritten++
			case strings.HasPrefix(value, "http://"):
				s.SetAttr(attr, "https://"+strings.TrimPrefix(value, "http://"))
				rewritten++
			}
		}
	})
	return rewritten
}

// ensureHead returns the document head, creating one as the first child of
// the root element when the markup has none.
func ensureHead(doc *goquery.Document) (*goquery.Selection, bool) {
	if head := doc.Find("head").First(); head.Length() > 0 {
		return head, false
	}

	headNode := &html.Node{Type: html.ElementNode, DataAtom: atom.Head, Data: "head"}
	root := doc.Find("html").First()
	if root.Length() == 0 {
		root = doc.Selection
	}
	root.PrependNodes(headNode)
	return doc.Find("head").First(), true
}

// injectLockdown puts the lockdown script first in head, ahead of every
// other script, and the neutralizing style last.
func injectLockdown(doc *goquery.Document) bool {
	head, synthesized := ensureHead(doc)
	head.AppendNodes(newNeutralizeNode())
	head.PrependNodes(newLockdownNode())
	return synthesized
}

// markProvenance flags the body as processed and records the snapshot time.
func markProvenance(doc *goquery.Document, timestamp string) {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return
	}
	body.SetAttr("data-possessed", "true")
	body.SetAttr("data-resurrection-time", timestamp)
}
