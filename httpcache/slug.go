package httpcache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"unicode"

	"github.com/mensylisir/xmrecipe/errdefs"
)

const maxSlugLength = 200

// Key is the content address of a URL in the disk cache and staging dir.
func Key(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// SlugifyURL turns a URL into a readable, filesystem-safe name:
// "https://www.seriouseats.com/best-chili-recipe" becomes
// "seriouseats-com_best-chili-recipe".
func SlugifyURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return sanitize(rawURL)
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return sanitize(host)
	}
	return sanitize(host + "_" + path)
}

func sanitize(s string) string {
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == maxSlugLength {
			break
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case r == '.' || r == '/':
			b.WriteByte('-')
		default:
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, errdefs.InvalidURL(rawURL, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errdefs.InvalidURL(rawURL, "scheme must be http or https")
	}
	if u.Host == "" {
		return nil, errdefs.InvalidURL(rawURL, "missing host")
	}
	return u, nil
}

// SourceName is the host of rawURL without a leading "www.".
func SourceName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
