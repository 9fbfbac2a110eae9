package sourcing

import "strings"

// Dedupe merges candidates from all providers in one pass. The first occurrence
// wins and no fields are reconciled across duplicates. Records with neither an
// email nor an identity key are always kept.
func Dedupe(candidates []CandidateProfile) []CandidateProfile {
	seenEmails := make(map[string]struct{}, len(candidates))
	seenKeys := make(map[string]struct{}, len(candidates))
	out := make([]CandidateProfile, 0, len(candidates))

	for _, c := range candidates {
		email := strings.ToLower(strings.TrimSpace(c.Email))
		key := IdentityKey(c)

		if email != "" {
			if _, ok := seenEmails[email]; ok {
				continue
			}
		} else if key != "" {
			if _, ok := seenKeys[key]; ok {
				continue
			}
		}

		if email != "" {
			seenEmails[email] = struct{}{}
		}
		if key != "" {
			seenKeys[key] = struct{}{}
		}
		out = append(out, c)
	}

	return out
}

// IdentityKey is the weak identity used when a candidate has no email:
// the lower-cased name, or the profile URL for nameless records.
func IdentityKey(c CandidateProfile) string {
	if name := strings.ToLower(collapseSpaces(c.Name)); name != "" {
		return "name:" + name
	}
	if url := strings.TrimSpace(c.ProfileURL); url != "" {
		return "url:" + strings.TrimRight(strings.ToLower(url), "/")
	}
	return ""
}
