package normalize

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var detailIDRe = regexp.MustCompile(`/(?:tournois?|tournaments?)/(?:[^/?#]*-)?(\d+)(?:[/?#]|$)`)
var trailingIDRe = regexp.MustCompile(`(\d{3,})/?$`)

// externalID returns the origin id when the page carries one, otherwise an id
// derived from the canonical URL. derived reports the second case.
func externalID(dataID, canonicalURL string) (id string, derived bool) {
	if id := strings.TrimSpace(dataID); id != "" {
		return id, false
	}
	if m := detailIDRe.FindStringSubmatch(canonicalURL); m != nil {
		return m[1], false
	}
	if u, err := url.Parse(canonicalURL); err == nil {
		if m := trailingIDRe.FindStringSubmatch(u.Path); m != nil {
			return m[1], false
		}
	}
	sum := sha1.Sum([]byte(canonicalURL))
	return "h" + hex.EncodeToString(sum[:])[:12], true
}

// IdentityHash fingerprints labelled key fields. Fields are hashed in label
// order with length prefixes, so the result does not depend on argument order
// and no two distinct field sets share an encoding.
func IdentityHash(fields map[string]string) string {
	labels := make([]string, 0, len(fields))
	for k := range fields {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	h := sha256.New()
	for _, k := range labels {
		v := fields[k]
		fmt.Fprintf(h, "%d:%s=%d:%s;", len(k), k, len(v), v)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func identityFields(source, extID string, derived bool, startDate, canonicalURL string) map[string]string {
	if derived {
		return map[string]string{"source": source, "canonical_url": canonicalURL}
	}
	return map[string]string{"source": source, "external_id": extID, "start_date": startDate}
}

// canonicalURL resolves href against pageURL and drops the fragment.
func canonicalURL(href, pageURL string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if !ref.IsAbs() {
		base, err := url.Parse(pageURL)
		if err != nil || !base.IsAbs() {
			return "", false
		}
		ref = base.ResolveReference(ref)
	}
	if (ref.Scheme != "http" && ref.Scheme != "https") || ref.Host == "" {
		return "", false
	}
	ref.Fragment = ""
	ref.Scheme = strings.ToLower(ref.Scheme)
	ref.Host = strings.ToLower(ref.Host)
	return ref.String(), true
}
