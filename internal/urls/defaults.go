package urls

// DefaultShorteners lists the link-shortening hosts flagged during URL
// scoring.
func DefaultShorteners() []string {
	return []string{
		"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly",
		"is.gd", "buff.ly", "rebrand.ly", "cutt.ly", "shorturl.at",
	}
}

// DefaultBrandDomains lists the genuine domains compared against for the
// look-alike check.
func DefaultBrandDomains() []string {
	return []string{
		"paypal.com", "microsoft.com", "apple.com", "amazon.com",
		"google.com", "netflix.com", "linkedin.com", "dropbox.com",
	}
}
