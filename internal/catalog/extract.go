package catalog

import (
	"regexp"
	"strings"
)

var (
	currencyAmount = regexp.MustCompile(`(?i)r\$\s?([0-9.,]+)`)
	upToAmount     = regexp.MustCompile(`(?i)(?:até|ate)\s?r?\$?\s?([0-9.,]+)`)
)

// ParseQuery recovers search criteria from a free-text utterance by scanning
// it for catalog locations, car names/models and price phrases. It is a best
// effort used when the model did not call any tool. Location is returned
// lowercased; Name is the matched entry's "Name Model".
func (c *Catalog) ParseQuery(utterance string) Criteria {
	lower := strings.ToLower(utterance)

	var criteria Criteria

	for _, loc := range c.locations {
		l := strings.ToLower(loc)
		if l != "" && strings.Contains(lower, l) {
			criteria.Location = l
			break
		}
	}

	if m := currencyAmount.FindStringSubmatch(utterance); m != nil {
		criteria.MaxPrice = NormalizePtr(m[1])
	} else if m := upToAmount.FindStringSubmatch(utterance); m != nil {
		criteria.MaxPrice = NormalizePtr(m[1])
	}

	criteria.Name = c.matchName(lower)

	return criteria
}

// matchName prefers an entry whose combined "name model" appears in the text,
// then the first entry whose name or model alone appears.
func (c *Catalog) matchName(lower string) string {
	for _, e := range c.entries {
		if strings.Contains(lower, strings.ToLower(e.Name+" "+e.Model)) {
			return e.Name + " " + e.Model
		}
	}

	for _, e := range c.entries {
		n := strings.ToLower(e.Name)
		m := strings.ToLower(e.Model)
		if (n != "" && strings.Contains(lower, n)) || (m != "" && strings.Contains(lower, m)) {
			return e.Name + " " + e.Model
		}
	}

	return ""
}
