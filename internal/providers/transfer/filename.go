package transfer

import (
	"net/url"
	"path"
	"strings"
)

// MinNameLength is the shortest derived file name kept as-is
const MinNameLength = 3

// TargetFileName derives the artifact file name from the URL path, ignoring
// the query string. Names shorter than MinNameLength become
// "<appID>-setup<ext>", keeping the derived extension when there is one and
// using fallbackExt otherwise.
func TargetFileName(appID, rawURL, fallbackExt string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.EscapedPath()
	} else if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		p = rawURL[:i]
	}

	name := path.Base(p)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = sanitize(name)

	if len(name) >= MinNameLength {
		return name
	}

	ext := path.Ext(name)
	if ext == "" || ext == name {
		ext = fallbackExt
	}
	return appID + "-setup" + ext
}

// sanitize drops separators and names that would escape the destination directory
func sanitize(name string) string {
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}
