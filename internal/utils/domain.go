package utils

import (
	"net/http"
	"net/url"
)

// ExtractOrigin derives the caller's origin (scheme + host) from the Origin
// header, falling back to Referer. Returns the empty string when neither
// header yields a parseable origin.
func ExtractOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return parsed.Scheme + "://" + parsed.Host
		}
	}
	if referer := r.Header.Get("Referer"); referer != "" {
		if parsed, err := url.Parse(referer); err == nil && parsed.Host != "" {
			return parsed.Scheme + "://" + parsed.Host
		}
	}
	return ""
}

// Hostname extracts the hostname from an origin or bare domain string.
// Stored domain rows may carry either form ("example.com" or
// "https://example.com").
func Hostname(domain string) string {
	if parsed, err := url.Parse(domain); err == nil && parsed.Hostname() != "" {
		return parsed.Hostname()
	}
	return domain
}
