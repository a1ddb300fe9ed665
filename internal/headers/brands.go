package headers

// DefaultBrands lists the commonly impersonated brands and the domains
// legitimately allowed to carry them in a display name.
func DefaultBrands() []Brand {
	return []Brand{
		{Token: "paypal", Domains: []string{"paypal.com"}},
		{Token: "microsoft", Domains: []string{"microsoft.com", "outlook.com", "live.com"}},
		{Token: "apple", Domains: []string{"apple.com", "icloud.com"}},
		{Token: "amazon", Domains: []string{"amazon.com"}},
		{Token: "google", Domains: []string{"google.com", "gmail.com"}},
		{Token: "netflix", Domains: []string{"netflix.com"}},
		{Token: "linkedin", Domains: []string{"linkedin.com"}},
		{Token: "dropbox", Domains: []string{"dropbox.com"}},
		{Token: "docusign", Domains: []string{"docusign.com", "docusign.net"}},
	}
}
