package imageurl

import (
	"regexp"
	"strings"
)

var deliveryPattern = regexp.MustCompile(`^https?://imagedelivery\.net/([^/?#]+)/([A-Za-z0-9_-]+)/([A-Za-z0-9_-]+)/?$`)

// Normalizer rewrites Cloudflare Images delivery URLs to the public custom domain.
// Every other URL passes through untouched.
type Normalizer struct {
	base    string
	variant string
}

func NewNormalizer(canonicalBase, variant string) Normalizer {
	if variant == "" {
		variant = "public"
	}
	return Normalizer{
		base:    strings.TrimRight(canonicalBase, "/"),
		variant: variant,
	}
}

// Normalize is pure and idempotent.
func (n Normalizer) Normalize(raw string) string {
	if n.base == "" {
		return raw
	}
	m := deliveryPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return raw
	}
	return n.base + "/images/" + m[2] + "/" + n.variant
}

// ImageID extracts the Cloudflare image id from a delivery URL or a canonical URL.
func (n Normalizer) ImageID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if m := deliveryPattern.FindStringSubmatch(raw); m != nil {
		return m[2], true
	}
	if n.base == "" {
		return "", false
	}
	rest, ok := strings.CutPrefix(raw, n.base+"/images/")
	if !ok {
		return "", false
	}
	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		return "", false
	}
	return id, true
}

// NormalizePtr is Normalize for nullable columns.
func (n Normalizer) NormalizePtr(raw *string) *string {
	if raw == nil {
		return nil
	}
	out := n.Normalize(*raw)
	return &out
}
