// Package querypath treats a portal path and its query string as a single
// routable unit. ILIAS dispatches every page through a handful of entry
// scripts (ilias.php, goto.php, ...) purely by query parameters, so the
// path alone never identifies a page.
package querypath

import (
	"fmt"
	"net/url"
	"strings"
)

// Get returns the querypath of u: its path without the leading slash,
// followed by "?" and the raw query if one is present.
func Get(u *url.URL) string {
	path := strings.TrimPrefix(u.EscapedPath(), "/")
	if u.RawQuery == "" {
		return path
	}
	return path + "?" + u.RawQuery
}

// Set replaces the path and query of u with the given querypath, keeping
// scheme, host and credentials intact.
func Set(u *url.URL, qp string) error {
	parsed, err := url.Parse(qp)
	if err != nil {
		return fmt.Errorf("parse querypath %q: %w", qp, err)
	}
	if parsed.IsAbs() {
		return fmt.Errorf("querypath %q is an absolute url", qp)
	}

	path := parsed.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = path
	u.RawPath = ""
	u.RawQuery = parsed.RawQuery
	u.Fragment = ""
	return nil
}

// Resolve returns a copy of base with qp set onto it.
func Resolve(base *url.URL, qp string) (*url.URL, error) {
	resolved := *base
	err := Set(&resolved, qp)
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}

var root = &url.URL{Path: "/"}

// FromLink converts an href as found on a portal page (absolute, rooted or
// relative) into a querypath. Every portal script lives at the root, so
// relative links are resolved against it.
func FromLink(link string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", link, err)
	}
	return Get(root.ResolveReference(parsed)), nil
}
