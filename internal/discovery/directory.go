package discovery

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"
)

// curatedSources maps topic keywords to known high-quality documentation
// entries. Last-resort data: served only when every networked provider fails.
var curatedSources = map[string][]SearchResult{
	"python": {
		{Title: "Python Official Documentation", URL: "https://docs.python.org/3/", Description: "Official Python documentation"},
		{Title: "Python Tutorial", URL: "https://docs.python.org/3/tutorial/", Description: "Python official tutorial"},
		{Title: "Real Python", URL: "https://realpython.com/", Description: "Python tutorials and articles"},
	},
	"javascript": {
		{Title: "MDN JavaScript", URL: "https://developer.mozilla.org/en-US/docs/Web/JavaScript", Description: "MDN JavaScript documentation"},
		{Title: "JavaScript.info", URL: "https://javascript.info/", Description: "Modern JavaScript tutorial"},
	},
	"typescript": {
		{Title: "TypeScript Docs", URL: "https://www.typescriptlang.org/docs/", Description: "Official TypeScript documentation"},
		{Title: "TypeScript Handbook", URL: "https://www.typescriptlang.org/docs/handbook/intro.html", Description: "TypeScript handbook"},
	},
	"react": {
		{Title: "React Docs", URL: "https://react.dev/", Description: "Official React documentation"},
		{Title: "React Tutorial", URL: "https://react.dev/learn", Description: "Learn React"},
	},
	"docker": {
		{Title: "Docker Docs", URL: "https://docs.docker.com/", Description: "Official Docker documentation"},
		{Title: "Docker Get Started", URL: "https://docs.docker.com/get-started/", Description: "Docker getting started guide"},
	},
	"kubernetes": {
		{Title: "Kubernetes Docs", URL: "https://kubernetes.io/docs/", Description: "Official Kubernetes documentation"},
		{Title: "Kubernetes Basics", URL: "https://kubernetes.io/docs/tutorials/kubernetes-basics/", Description: "Kubernetes basics tutorial"},
	},
}

// DirectoryProvider serves entries from the curated directory. It performs no
// network calls and never fails, so it always sits last in the chain.
type DirectoryProvider struct{}

var _ Provider = (*DirectoryProvider)(nil)

// NewDirectoryProvider creates the provider.
func NewDirectoryProvider() *DirectoryProvider { return &DirectoryProvider{} }

func (d *DirectoryProvider) Name() string { return "curated-directory" }

// Search matches the query's leading word against the curated topics. With no
// match it falls back to generic learning-site entries for the word.
func (d *DirectoryProvider) Search(_ context.Context, query string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return nil, nil
	}
	topic := fields[0]

	var results []SearchResult
	for keyword, entries := range curatedSources {
		if !strings.Contains(topic, keyword) && !strings.Contains(keyword, topic) {
			continue
		}
		for _, e := range entries {
			if len(results) >= maxResults {
				break
			}
			results = append(results, e)
		}
	}

	if len(results) == 0 {
		first, size := utf8.DecodeRuneInString(topic)
		caser := strings.ToUpper(string(first)) + topic[size:]
		results = []SearchResult{
			{
				Title:       caser + " on W3Schools",
				URL:         "https://www.w3schools.com/" + topic + "/",
				Description: "W3Schools " + topic + " tutorial",
			},
			{
				Title:       caser + " on MDN",
				URL:         "https://developer.mozilla.org/en-US/search?q=" + url.QueryEscape(topic),
				Description: "MDN resources for " + topic,
			},
		}
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}
