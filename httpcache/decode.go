package httpcache

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"

	"github.com/mensylisir/xmrecipe/errdefs"
)

// metaPrescanBytes is how far into the document a <meta> charset is honoured.
const metaPrescanBytes = 1024

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?\s*([a-z0-9_:.\-]+)`)

// DecodeHTML converts a response body to UTF-8. A declared non-UTF-8 charset
// (BOM, Content-Type or <meta>) wins; otherwise the body must already be
// valid UTF-8.
func DecodeHTML(body []byte, contentType string) (string, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain {
		// Without a BOM or header the library only guesses; trust an
		// explicit <meta> declaration and nothing else.
		enc, name = metaCharset(body)
	}
	if enc != nil && name != "utf-8" {
		out, err := enc.NewDecoder().Bytes(body)
		if err != nil {
			return "", errors.Wrapf(errdefs.ErrInvalidEncoding, "decode %s: %v", name, err)
		}
		return string(out), nil
	}
	if utf8.Valid(body) {
		return string(body), nil
	}
	return "", errors.Wrap(errdefs.ErrInvalidEncoding, "body is not valid utf-8 and declares no usable charset")
}

// metaCharset returns the encoding named by a <meta charset> or
// <meta http-equiv content="...; charset="> near the top of body.
func metaCharset(body []byte) (encoding.Encoding, string) {
	head := body
	if len(head) > metaPrescanBytes {
		head = head[:metaPrescanBytes]
	}
	m := metaCharsetRe.FindSubmatch(head)
	if m == nil {
		return nil, ""
	}
	label := strings.ToLower(string(bytes.TrimSpace(m[1])))
	// A document that reached us as bytes cannot really be UTF-16.
	if strings.HasPrefix(label, "utf-16") {
		return nil, "utf-8"
	}
	enc, name := charset.Lookup(label)
	if enc == nil {
		return nil, ""
	}
	return enc, name
}
