package search

import "strings"

// catalogPage is a public page known to the site-wide search.
type catalogPage struct {
	ID          string
	Title       string
	Description string
	URL         string
}

// pageCatalog lists the public pages in display order.
var pageCatalog = []catalogPage{
	{ID: "home", Title: "Home", Description: "Main landing page", URL: "/"},
	{ID: "about", Title: "About Us", Description: "Learn about our mission and values", URL: "/about"},
	{ID: "contact", Title: "Contact Us", Description: "Get in touch with our team", URL: "/contact"},
	{ID: "privacy", Title: "Privacy Policy", Description: "Our privacy and data protection policies", URL: "/privacy"},
	{ID: "terms", Title: "Terms of Service", Description: "Terms and conditions of use", URL: "/terms"},
}

// matchPages filters the catalog by title or description substring.
// The query is expected to be lowercased already.
func matchPages(query string) []Result {
	var out []Result
	for _, page := range pageCatalog {
		if strings.Contains(strings.ToLower(page.Title), query) ||
			strings.Contains(strings.ToLower(page.Description), query) {
			out = append(out, Result{
				ID:          page.ID,
				Type:        KindPage,
				Title:       page.Title,
				Description: page.Description,
				URL:         page.URL,
			})
		}
	}
	return out
}
