// Package intent turns a recruiter's free-text query into a structured search request.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/candidate-scout/internal/sourcing"
)

// Intent is what the recruiter asked for.
type Intent struct {
	Text            string                   `json:"text"`
	Trade           string                   `json:"trade,omitempty"`
	Keywords        string                   `json:"keywords"`
	Location        string                   `json:"location,omitempty"`
	Skills          []string                 `json:"skills,omitempty"`
	Certifications  []string                 `json:"certifications,omitempty"`
	ExperienceLevel sourcing.ExperienceLevel `json:"experience_level,omitempty"`
	ResultLimit     int                      `json:"result_limit,omitempty"`
	Suggestions     []string                 `json:"suggestions,omitempty"`
}

// Request converts the intent into a search request. Certifications are searched as skills.
func (i Intent) Request() sourcing.SearchRequest {
	skills := make([]string, 0, len(i.Skills)+len(i.Certifications))
	skills = append(skills, i.Skills...)
	for _, cert := range i.Certifications {
		if !contains(skills, cert) {
			skills = append(skills, cert)
		}
	}

	return sourcing.SearchRequest{
		Keywords:        i.Keywords,
		Location:        i.Location,
		Skills:          skills,
		ExperienceLevel: i.ExperienceLevel,
		ResultLimit:     i.ResultLimit,
	}
}

// Parser extracts an intent from text.
type Parser interface {
	Parse(ctx context.Context, text string) (Intent, error)
}

// Heuristic is the keyword-table parser. It needs no network access.
type Heuristic struct{}

func (Heuristic) Parse(_ context.Context, text string) (Intent, error) {
	return Parse(text)
}

type vocabulary struct {
	name    string
	phrases []*regexp.Regexp
}

func words(name string, phrases ...string) vocabulary {
	v := vocabulary{name: name}
	for _, p := range phrases {
		v.phrases = append(v.phrases, regexp.MustCompile(`(?i)(^|[^\pL\pN])`+regexp.QuoteMeta(p)+`(?:s|es)?($|[^\pL\pN])`))
	}
	return v
}

func (v vocabulary) match(text string) bool {
	for _, re := range v.phrases {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// trades are checked in order; the first match wins.
var trades = []vocabulary{
	words("electrician", "electrician", "electrical", "journeyman electrician", "master electrician", "wireman"),
	words("hvac technician", "hvac", "heating", "cooling", "air conditioning", "refrigeration"),
	words("plumber", "plumber", "plumbing", "pipefitter", "pipe fitter"),
	words("carpenter", "carpenter", "carpentry", "framing", "finish carpenter", "cabinet maker"),
	words("welder", "welder", "welding", "fabricator", "tig", "mig"),
	words("window installer", "window", "door installer", "glazier"),
	words("roofer", "roofer", "roofing"),
	words("painter", "painter", "painting", "drywall"),
	words("mason", "mason", "masonry", "bricklayer", "concrete"),
	words("heavy equipment operator", "heavy equipment", "excavator", "crane operator"),
	words("construction laborer", "construction", "laborer", "general contractor"),
}

// certifications keep their canonical spelling in the resulting skills.
var certifications = []vocabulary{
	words("OSHA 10", "osha 10", "osha-10"),
	words("OSHA 30", "osha 30", "osha-30"),
	words("OSHA", "osha"),
	words("EPA 608", "epa 608", "608 certified", "608"),
	words("EPA", "epa", "epa certified", "609"),
	words("State License", "licensed", "license", "master", "journeyman"),
	words("CDL", "dot", "cdl", "commercial driver"),
	words("NCCER", "nccer"),
	words("AWS Certified Welder", "aws certified", "aws d1.1"),
}

var levels = []struct {
	level sourcing.ExperienceLevel
	vocabulary
}{
	{sourcing.LevelExecutive, words("", "executive", "director", "vp", "vice president", "head of", "chief")},
	{sourcing.LevelSenior, words("", "senior", "sr", "experienced", "veteran", "lead", "foreman", "10+ years", "15+ years")},
	{sourcing.LevelJunior, words("", "junior", "jr", "entry level", "entry-level", "apprentice", "helper", "trainee")},
	{sourcing.LevelMid, words("", "mid-level", "mid level", "intermediate", "5+ years")},
}

var (
	locationRe  = regexp.MustCompile(`\b(?:in|near|around|based in|within)\s+([A-Z][\p{L}.'-]*(?:[ ,]+[A-Z][\p{L}.'-]*)*)`)
	limitRe     = regexp.MustCompile(`(?i)\b(\d{1,3})\s+(?:candidates|people|profiles|results|workers|hires)\b`)
	leadLimitRe = regexp.MustCompile(`(?i)\b(?:top|find|show|get|need)\s+(\d{1,3})(?:\s|$)`)
	yearsRe     = regexp.MustCompile(`(?i)(\d{1,2})\+?\s*(?:years|yrs)`)
	fillerRe    = regexp.MustCompile(`(?i)\b(?:find|search|show|get|give|me|us|for|a|an|the|some|i|we|need|want|looking|please|candidates|people|profiles|with|who|are|is|and|or)\b`)
	spaceRe     = regexp.MustCompile(`[\s,.;:!?]+`)

	prepositionRe = regexp.MustCompile(`(?i)\b(?:in|near|around|based|within)\b`)
)

// Parse extracts trade, certifications, experience level, location and result limit.
// When no trade is recognized the cleaned text becomes the keywords.
func Parse(text string) (Intent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Intent{}, fmt.Errorf("%w: query text must not be empty", sourcing.ErrInvalidRequest)
	}

	in := Intent{Text: text}

	for _, trade := range trades {
		if trade.match(text) {
			in.Trade = trade.name
			break
		}
	}

	for _, cert := range certifications {
		if cert.match(text) && !coveredBy(in.Certifications, cert.name) {
			in.Certifications = append(in.Certifications, cert.name)
		}
	}

	for _, l := range levels {
		if l.match(text) {
			in.ExperienceLevel = l.level
			break
		}
	}
	if in.ExperienceLevel == "" {
		if m := yearsRe.FindStringSubmatch(text); m != nil {
			years, _ := strconv.Atoi(m[1])
			in.ExperienceLevel = levelForYears(years)
		}
	}

	location := ""
	if m := locationRe.FindStringSubmatchIndex(text); m != nil {
		location = trimLocation(text[m[2]:m[3]])
		in.Location = location
	}

	for _, re := range []*regexp.Regexp{limitRe, leadLimitRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				in.ResultLimit = n
				break
			}
		}
	}

	in.Keywords = in.Trade
	if in.Keywords == "" {
		in.Keywords = keywords(text, location)
	}
	if in.Keywords == "" {
		in.Keywords = text
	}

	in.Suggestions = suggestions(in)
	return in, nil
}

// coveredBy drops a generic certification when a specific one of the same family is present.
func coveredBy(found []string, name string) bool {
	for _, f := range found {
		if f == name || strings.HasPrefix(f, name+" ") {
			return true
		}
	}
	return false
}

// trimLocation cuts the captured place name at the first recognized vocabulary word.
func trimLocation(raw string) string {
	var kept []string
	for _, token := range strings.Fields(raw) {
		if isVocabulary(strings.Trim(token, ",")) {
			break
		}
		kept = append(kept, token)
	}
	return strings.Trim(strings.Join(kept, " "), " ,")
}

func isVocabulary(token string) bool {
	for _, group := range [][]vocabulary{trades, certifications} {
		for _, v := range group {
			if v.match(token) {
				return true
			}
		}
	}
	for _, l := range levels {
		if l.match(token) {
			return true
		}
	}
	return false
}

func levelForYears(years int) sourcing.ExperienceLevel {
	switch {
	case years >= 10:
		return sourcing.LevelSenior
	case years >= 3:
		return sourcing.LevelMid
	default:
		return sourcing.LevelJunior
	}
}

func keywords(text, location string) string {
	if location != "" {
		text = strings.Replace(text, location, " ", 1)
	}
	text = limitRe.ReplaceAllString(text, " ")
	text = leadLimitRe.ReplaceAllString(text, " ")
	text = yearsRe.ReplaceAllString(text, " ")
	for _, l := range levels {
		for _, re := range l.phrases {
			text = re.ReplaceAllString(text, " ")
		}
	}
	for _, c := range certifications {
		for _, re := range c.phrases {
			text = re.ReplaceAllString(text, " ")
		}
	}
	text = prepositionRe.ReplaceAllString(text, " ")
	text = fillerRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

func suggestions(in Intent) []string {
	var out []string
	if in.Trade != "" {
		out = append(out, fmt.Sprintf("Focusing on %s professionals.", in.Trade))
	}
	if len(in.Certifications) > 0 {
		out = append(out, fmt.Sprintf("Looking for candidates with %s.", strings.Join(in.Certifications, ", ")))
	}
	switch in.ExperienceLevel {
	case sourcing.LevelSenior, sourcing.LevelExecutive:
		out = append(out, "Searching for seasoned professionals with 10+ years of experience.")
	case sourcing.LevelMid:
		out = append(out, "Searching for skilled journeymen with 5-10 years of experience.")
	case sourcing.LevelJunior:
		out = append(out, "Searching for apprentices and helpers.")
	}
	if in.Trade == "" && len(in.Certifications) == 0 {
		out = append(out, "Mention the trade, required certifications or experience level to narrow the search.")
	}
	return out
}

var tradeTips = []struct {
	trade   vocabulary
	covered *regexp.Regexp
	tip     string
}{
	{words("", "electrician", "electrical"), regexp.MustCompile(`(?i)licens`), `Consider adding "licensed": most electrician roles require a state license.`},
	{words("", "hvac"), regexp.MustCompile(`(?i)\bepa\b|608`), `Consider adding "EPA certified": EPA certification is often required for HVAC techs.`},
	{words("", "plumber", "plumbing"), regexp.MustCompile(`(?i)licens`), `Consider adding "licensed": plumbing work usually needs a journeyman or master license.`},
	{words("", "welder", "welding"), regexp.MustCompile(`(?i)\baws\b|certified`), `Consider adding "AWS certified" to find welders with a structural certification.`},
	{words("", "heavy equipment", "crane operator"), regexp.MustCompile(`(?i)\bcdl\b|nccer`), `Consider adding "CDL" or "NCCER" for equipment operators.`},
}

// Tips suggests trade-specific keywords the query text does not mention yet.
func Tips(text string) []string {
	var out []string
	for _, t := range tradeTips {
		if t.trade.match(text) && !t.covered.MatchString(text) {
			out = append(out, t.tip)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
