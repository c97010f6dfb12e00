package charset

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	xcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// Binary is the name Detect returns for payloads that have no text encoding.
const Binary = "binary"

// DetectFunc decides the text encoding of an HTTP payload. Implementations
// return a charset name understood by Decode, an empty string for plain
// UTF-8, or Binary for payloads that are not text.
type DetectFunc func(header http.Header, body []byte) string

// Detect inspects the Content-Type header and the payload bytes and names
// the charset the payload is written in. A declared charset parameter wins
// when it resolves to a known encoding; otherwise textual media types are
// sniffed and everything else is reported as Binary.
func Detect(header http.Header, body []byte) string {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		return sniff(body)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return sniff(body)
	}

	if label, ok := params["charset"]; ok {
		if _, name := xcharset.Lookup(label); name != "" {
			return name
		}
	}

	if !textual(mediaType) {
		return Binary
	}

	if utf8.Valid(body) {
		return ""
	}

	_, name, _ := xcharset.DetermineEncoding(body, contentType)
	return name
}

// Decode converts body from the named charset to a UTF-8 string. An empty
// name means the body already is UTF-8.
func Decode(body []byte, name string) (string, error) {
	if name == "" || name == "utf-8" {
		return string(body), nil
	}
	if name == Binary {
		return "", fmt.Errorf("charset: binary payload has no text form")
	}

	enc, _ := xcharset.Lookup(name)
	if enc == nil {
		return "", fmt.Errorf("charset: unknown encoding %q", name)
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return "", fmt.Errorf("charset: decode %s: %w", name, err)
	}
	return string(out), nil
}

func sniff(body []byte) string {
	if utf8.Valid(body) {
		return ""
	}
	return Binary
}

func textual(mediaType string) bool {
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	switch mediaType {
	case "application/json", "application/javascript", "application/xml",
		"application/x-www-form-urlencoded":
		return true
	}
	return strings.HasSuffix(mediaType, "+json") || strings.HasSuffix(mediaType, "+xml")
}
