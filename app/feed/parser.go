package feed

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"regexp"

	"github.com/mmcdole/gofeed"
	"golang.org/x/text/language"
)

// ErrUnparseable marks feed text in which no title could be found at all.
// The caller treats it as zero items for the pass, never as fatal.
var ErrUnparseable = errors.New("no feed title found")

// Parser turns raw feed text into a Document. gofeed handles well-formed
// RSS/Atom (including CDATA and entity quirks); when it rejects the document
// outright, a field-by-field pattern fallback extracts what it can, since
// third-party regulatory feeds are frequently malformed and partial data
// beats no data.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte, feedURL string) (*Document, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return p.fallbackParse(data, feedURL)
	}

	doc := &Document{
		FeedURL: feedURL,
		Metadata: Metadata{
			Title:       sanitize(parsed.Title),
			Link:        parsed.Link,
			Description: sanitize(parsed.Description),
			Language:    canonicalLanguage(parsed.Language),
		},
	}

	if parsed.UpdatedParsed != nil {
		doc.Metadata.LastBuildDate = parsed.UpdatedParsed
	}

	for _, item := range parsed.Items {
		normalized := p.normalizeItem(item)
		if normalized.Title == "" {
			continue
		}
		doc.Items = append(doc.Items, normalized)
	}

	if doc.Metadata.Title == "" && len(doc.Items) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrUnparseable, feedURL)
	}

	return doc, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	normalized := Item{
		Title:       sanitize(item.Title),
		Link:        item.Link,
		Description: sanitize(cmp.Or(item.Description, item.Content)),
		GUID:        item.GUID,
		Published:   item.Published,
	}

	if item.PublishedParsed != nil {
		normalized.PublishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		normalized.PublishedAt = item.UpdatedParsed
	}

	if len(item.Authors) > 0 && item.Authors[0] != nil {
		normalized.Author = sanitize(item.Authors[0].Name)
	}

	for _, category := range item.Categories {
		if c := sanitize(category); c != "" {
			normalized.Categories = append(normalized.Categories, c)
		}
	}

	return normalized
}

func canonicalLanguage(lang string) string {
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	return tag.String()
}

// Fallback pattern extraction

var (
	itemBlockPattern = regexp.MustCompile(`(?is)<(?:item|entry)[\s>].*?</(?:item|entry)\s*>`)
	titlePattern     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	linkPattern      = regexp.MustCompile(`(?is)<link[^>]*>(.*?)</link>`)
	atomLinkPattern  = regexp.MustCompile(`(?is)<link[^>]*href="([^"]+)"`)
	descPattern      = regexp.MustCompile(`(?is)<(?:description|summary|content)[^>]*>(.*?)</(?:description|summary|content)>`)
	datePattern      = regexp.MustCompile(`(?is)<(?:pubDate|published|updated|dc:date)[^>]*>(.*?)</(?:pubDate|published|updated|dc:date)>`)
	guidPattern      = regexp.MustCompile(`(?is)<(?:guid|id)[^>]*>(.*?)</(?:guid|id)>`)
	authorPattern    = regexp.MustCompile(`(?is)<author[^>]*>(.*?)</author>`)
	namePattern      = regexp.MustCompile(`(?is)<name[^>]*>(.*?)</name>`)
	categoryPattern  = regexp.MustCompile(`(?is)<category[^>]*>(.*?)</category>`)
	catTermPattern   = regexp.MustCompile(`(?is)<category[^>]*term="([^"]+)"`)
)

// fallbackParse scans item/entry blocks independently per field instead of
// requiring a well-formed document. Items without a title are dropped.
func (p *Parser) fallbackParse(data []byte, feedURL string) (*Document, error) {
	text := string(data)

	doc := &Document{
		FeedURL: feedURL,
	}

	blocks := itemBlockPattern.FindAllString(text, -1)

	// The channel title precedes the first item block; matching against the
	// leading portion keeps item titles from masquerading as the feed title.
	head := text
	if len(blocks) > 0 {
		if idx := itemBlockPattern.FindStringIndex(text); idx != nil {
			head = text[:idx[0]]
		}
	}
	if m := titlePattern.FindStringSubmatch(head); m != nil {
		doc.Metadata.Title = sanitize(m[1])
	}
	if m := descPattern.FindStringSubmatch(head); m != nil {
		doc.Metadata.Description = sanitize(m[1])
	}

	for _, block := range blocks {
		item := p.extractItem(block)
		if item.Title == "" {
			continue
		}
		doc.Items = append(doc.Items, item)
	}

	if doc.Metadata.Title == "" && len(doc.Items) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrUnparseable, feedURL)
	}

	return doc, nil
}

func (p *Parser) extractItem(block string) Item {
	item := Item{}

	if m := titlePattern.FindStringSubmatch(block); m != nil {
		item.Title = sanitize(m[1])
	}
	if m := linkPattern.FindStringSubmatch(block); m != nil && sanitize(m[1]) != "" {
		item.Link = sanitize(m[1])
	} else if m := atomLinkPattern.FindStringSubmatch(block); m != nil {
		item.Link = m[1]
	}
	if m := descPattern.FindStringSubmatch(block); m != nil {
		item.Description = sanitize(m[1])
	}
	if m := datePattern.FindStringSubmatch(block); m != nil {
		item.Published = sanitize(m[1])
	}
	if m := guidPattern.FindStringSubmatch(block); m != nil {
		item.GUID = sanitize(m[1])
	}
	if m := authorPattern.FindStringSubmatch(block); m != nil {
		author := m[1]
		if n := namePattern.FindStringSubmatch(author); n != nil {
			author = n[1]
		}
		item.Author = sanitize(author)
	}
	for _, m := range categoryPattern.FindAllStringSubmatch(block, -1) {
		if c := sanitize(m[1]); c != "" {
			item.Categories = append(item.Categories, c)
		}
	}
	for _, m := range catTermPattern.FindAllStringSubmatch(block, -1) {
		if c := sanitize(m[1]); c != "" {
			item.Categories = append(item.Categories, c)
		}
	}

	return item
}
