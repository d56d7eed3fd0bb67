package core

import "strings"

// ExtractAddress reduces a raw From header to the bare address. For
// "Display Name <user@host>" it returns the content of the first angle
// bracket pair; a header without brackets is returned trimmed.
func ExtractAddress(raw string) string {
	open := strings.IndexByte(raw, '<')
	if open >= 0 {
		if end := strings.IndexByte(raw[open+1:], '>'); end >= 0 {
			return strings.TrimSpace(raw[open+1 : open+1+end])
		}
	}
	return strings.TrimSpace(raw)
}

// domainOf returns the lowercase part after the last "@", or "" without one
func domainOf(address string) string {
	at := strings.LastIndex(address, domainSigil)
	if at < 0 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// parentDomain returns the last two labels of a domain that has more than
// two, or "" when the domain is not a subdomain.
func parentDomain(domain string) string {
	labels := strings.Split(domain, ".")
	if len(labels) < 3 {
		return ""
	}
	for _, l := range labels {
		if l == "" {
			return ""
		}
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
