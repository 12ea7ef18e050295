package discovery

import (
	"net/url"
	"strings"
)

// SourceType is the coarse origin classification of a discovered resource.
type SourceType string

const (
	SourceOfficialDocs SourceType = "official_docs"
	SourceEducational  SourceType = "educational"
	SourceGitHub       SourceType = "github"
	SourceBlog         SourceType = "blog"
	SourceOther        SourceType = "other"
)

// High-authority domain sets per source type. Matching is substring-based
// against the lowercased host with any leading "www." removed.
var (
	officialDocsDomains = []string{
		"docs.python.org", "developer.mozilla.org", "docs.microsoft.com",
		"docs.oracle.com", "golang.org", "rust-lang.org", "kotlinlang.org",
		"docs.rs", "reactjs.org", "vuejs.org", "angular.io", "svelte.dev",
		"nodejs.org", "docs.docker.com", "kubernetes.io", "docs.aws.amazon.com",
		"cloud.google.com", "docs.github.com", "typescriptlang.org",
	}

	educationalPlatforms = []string{
		"w3schools.com", "freecodecamp.org", "codecademy.com",
		"khanacademy.org", "coursera.org", "udacity.com", "edx.org",
		"realpython.com", "learnpython.org", "learn.microsoft.com",
		"developers.google.com", "tutorialspoint.com", "geeksforgeeks.org",
	}

	githubDomains = []string{"github.com", "gitlab.com", "bitbucket.org"}

	qualityBlogDomains = []string{
		"medium.com", "dev.to", "hashnode.dev", "css-tricks.com",
		"smashingmagazine.com", "a11y.com", "martinfowler.com",
		"blog.cleancoder.com", "joelonsoftware.com",
	}
)

// Quality indicators counted in title+description during scoring.
var qualityKeywords = []string{
	"official", "documentation", "guide", "tutorial", "introduction",
	"getting started", "learn", "course", "reference", "handbook",
	"comprehensive", "complete", "beginner", "fundamentals",
}

// URL substrings that mark likely spam or affiliate content.
var spamIndicators = []string{"?ref=", "affiliate", "ad.", "ads.", "popup"}

// Bonus added to the base score per source type.
var sourceTypeBonus = map[SourceType]float64{
	SourceOfficialDocs: 0.4,
	SourceEducational:  0.3,
	SourceGitHub:       0.2,
	SourceBlog:         0.15,
	SourceOther:        0.0,
}

// ClassifySource tags a URL with its source type by matching the host against
// the static domain sets. An unparseable URL classifies as "other".
func ClassifySource(rawURL string) SourceType {
	u, err := url.Parse(rawURL)
	if err != nil {
		return SourceOther
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	matches := func(domains []string) bool {
		for _, d := range domains {
			if strings.Contains(host, d) {
				return true
			}
		}
		return false
	}

	switch {
	case matches(officialDocsDomains):
		return SourceOfficialDocs
	case matches(educationalPlatforms):
		return SourceEducational
	case matches(githubDomains):
		return SourceGitHub
	case matches(qualityBlogDomains):
		return SourceBlog
	default:
		return SourceOther
	}
}

// PriorityScore rates a resource's expected quality in [0, 1].
//
// The adjustments, in order: source-type bonus, URL path-depth bonus, quality
// keyword bonus capped at 0.1, long-URL penalty, spam-indicator penalty.
// The exact constants are relied upon by ranking expectations downstream;
// do not retune them casually.
func PriorityScore(rawURL, title, description string, sourceType SourceType) float64 {
	score := 0.5

	score += sourceTypeBonus[sourceType]

	if u, err := url.Parse(rawURL); err == nil {
		depth := len(strings.Split(strings.Trim(u.Path, "/"), "/"))
		if depth <= 2 {
			score += 0.1
		} else if depth <= 4 {
			score += 0.05
		}
	}

	// Lowercase once, then count keyword hits
	text := strings.ToLower(title + " " + description)
	matches := 0
	for _, kw := range qualityKeywords {
		if strings.Contains(text, kw) {
			matches++
		}
	}
	bonus := float64(matches) * 0.02
	if bonus > 0.1 {
		bonus = 0.1
	}
	score += bonus

	if len(rawURL) > 150 {
		score -= 0.1
	}

	lowerURL := strings.ToLower(rawURL)
	for _, indicator := range spamIndicators {
		if strings.Contains(lowerURL, indicator) {
			score -= 0.3
			break
		}
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
