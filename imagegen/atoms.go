// Package imagegen provides cloud image generation for the gateway.
//
// atoms.go contains pure utility functions with no dependencies.
package imagegen

import (
	"net"
	"net/url"
	"strings"
)

// IsAzureEndpoint checks if the given endpoint URL is an Azure OpenAI endpoint.
// It performs case-insensitive substring matching against known Azure domains.
//
// Example:
//
//	IsAzureEndpoint("https://myresource.openai.azure.com")  // true
//	IsAzureEndpoint("https://api.openai.com")               // false
func IsAzureEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	lower := strings.ToLower(endpoint)
	return strings.Contains(lower, "openai.azure.com") ||
		strings.Contains(lower, "cognitiveservices.azure.com")
}

// IsOpenAIEndpoint checks if the given endpoint URL is the standard OpenAI API.
func IsOpenAIEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	return strings.Contains(strings.ToLower(endpoint), "api.openai.com")
}

// IsLocalEndpoint checks if the given endpoint URL points at a loopback,
// unspecified or RFC 1918 private-network host. Local endpoints do not
// serve the image API. The host is parsed out of the URL so public names
// that merely contain a private-looking substring are not misclassified.
//
// Example:
//
//	IsLocalEndpoint("http://localhost:1234")      // true
//	IsLocalEndpoint("http://192.168.1.100:5000")  // true
//	IsLocalEndpoint("https://api.openai.com")     // false
//	IsLocalEndpoint("https://win10.example.com")  // false
func IsLocalEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}

	host := endpointHost(endpoint)
	if host == "" {
		return false
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified() || ip.IsPrivate()
	}
	return false
}

// endpointHost extracts the lowercased hostname, tolerating bare
// host:port values without a scheme.
func endpointHost(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Hostname() != "" {
		return strings.ToLower(u.Hostname())
	}
	if host, _, err := net.SplitHostPort(endpoint); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(strings.Trim(endpoint, "/"))
}
