package sourcing

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/spigell/candidate-scout/internal/utils"
)

// MaxSummaryLength bounds free-text fields handed to downstream consumers.
const MaxSummaryLength = 500

// Normalize converts a raw provider record into the canonical profile.
// The boolean is false when the record has no usable identity and must be discarded.
func Normalize(record Record, source string) (CandidateProfile, bool) {
	if record == nil {
		return CandidateProfile{}, false
	}

	c := record.Candidate()
	c.Source = strings.TrimSpace(source)

	c.Name = collapseSpaces(c.Name)
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Location = collapseSpaces(c.Location)
	c.Title = collapseSpaces(c.Title)
	c.Company = collapseSpaces(c.Company)
	c.ProfileURL = strings.TrimSpace(c.ProfileURL)

	switch {
	case c.Name == "" && (c.FirstName != "" || c.LastName != ""):
		c.Name = strings.TrimSpace(c.FirstName + " " + c.LastName)
	case c.Name != "" && c.FirstName == "" && c.LastName == "":
		c.FirstName, c.LastName = splitName(c.Name)
	}

	if c.Email == "" && c.ProfileURL == "" && c.Name == "" {
		return CandidateProfile{}, false
	}

	c.Skills = NormalizeSkills(c.Skills)
	c.Summary = utils.TruncateRunes(collapseSpaces(PlainText(c.Summary)), MaxSummaryLength)

	if c.ExperienceYears < 0 {
		c.ExperienceYears = 0
	}
	if c.Followers < 0 {
		c.Followers = 0
	}
	if c.EstimatedFit <= 0 {
		c.EstimatedFit = DefaultFit
	}
	c.EstimatedFit = clamp(c.EstimatedFit)

	return c, true
}

// NormalizeSkills trims, lower-cases and de-duplicates skill tokens keeping first-seen order.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		skill = strings.ToLower(collapseSpaces(skill))
		if skill == "" {
			continue
		}
		if _, ok := seen[skill]; ok {
			continue
		}
		seen[skill] = struct{}{}
		out = append(out, skill)
	}
	return out
}

// PlainText strips HTML markup from provider text. Input without tags is returned as is.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br, p, li, div").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})

	return doc.Text()
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
