package feed

import (
	"cmp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/medtrack/regwatch/app/database"
	"github.com/medtrack/regwatch/app/sources"
)

const identifierMaxLength = 64

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run maps a parsed feed item and its owning source to the persisted
// regulatory update shape.
func (n *Normalizer) Run(item Item, source *sources.Source) database.RegulatoryUpdate {
	return database.RegulatoryUpdate{
		Identifier:  DeriveIdentifier(item.GUID, item.Link, item.Title),
		Title:       item.Title,
		Content:     cmp.Or(item.Description, item.Title),
		Source:      source.Authority,
		Region:      source.Region,
		UpdateType:  source.UpdateType,
		Priority:    string(ClassifyPriority(item.Title, item.Description)),
		PublishedAt: n.resolvePublished(item),
		Categories:  item.Categories,
		SourceName:  source.Name,
		Link:        item.Link,
	}
}

// DeriveIdentifier produces the stable per-item identifier: guid preferred,
// then link, then title, lowercased with non-alphanumerics stripped and
// truncated. Re-ingesting the same logical item must always yield the same
// value, since the duplicate filter keys on it.
func DeriveIdentifier(guid, link, title string) string {
	raw := cmp.Or(guid, link, title)

	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	identifier := b.String()
	if len(identifier) > identifierMaxLength {
		identifier = identifier[:identifierMaxLength]
	}

	return identifier
}

// resolvePublished never rejects an item over its date: an unparseable or
// missing date degrades to the ingestion time.
func (n *Normalizer) resolvePublished(item Item) time.Time {
	if item.PublishedAt != nil {
		return item.PublishedAt.UTC()
	}

	if item.Published != "" {
		if parsed, err := dateparse.ParseAny(item.Published); err == nil {
			return parsed.UTC()
		}
	}

	return time.Now().UTC()
}
