package invites

import (
	"net/url"
)

// Fixed UTM parameters attached to every review link. The link must be
// deterministic: identical inputs always render the identical URL string,
// which url.Values.Encode guarantees by sorting keys.
const (
	utmMedium = "invitation"
	utmSource = "reviewloop"
)

// ReviewLink renders the templated review URL for the configured review-site
// domain and business display name.
func ReviewLink(domain, businessName string) string {
	q := url.Values{}
	q.Set("utm_medium", utmMedium)
	q.Set("utm_source", utmSource)
	q.Set("utm_campaign", businessName)

	u := url.URL{
		Scheme:   "https",
		Host:     domain,
		Path:     "/evaluate",
		RawQuery: q.Encode(),
	}
	return u.String()
}
