package rest

import (
	"crypto/sha1"
	"fmt"
	"net/http"
	"strings"
	"time"

	"yardb/internal/yarerr"
)

// ETag derives the stable fingerprint required by §4.4.4: it changes on
// every mutation (position changes) and is equal across reads that see
// the same record. Hashing is a pure stdlib concern here — no codec or
// domain library is involved, only a fingerprint over three already-known
// values — so crypto/sha1 needs no ecosystem substitute.
func ETag(collection string, id, position int64) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s/%d@%d", collection, id, position)))
	return fmt.Sprintf("%x", sum)
}

// LastModified formats t per §4.4.4, truncated to seconds.
func LastModified(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(http.TimeFormat)
}

// EvaluateSafe implements the GET/HEAD conditional-request evaluation
// order of §4.4.4: If-None-Match, then If-Modified-Since. Returns true if
// the response should be 304 Not Modified.
func EvaluateSafe(r *http.Request, exists bool, etag string, lastModified time.Time) bool {
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		if inm == "*" {
			return exists
		}
		return exists && matchesAny(inm, etag)
	}
	if ims := r.Header.Get("If-Modified-Since"); ims != "" {
		if t, err := http.ParseTime(ims); err == nil && exists {
			return !lastModified.UTC().Truncate(time.Second).After(t.UTC())
		}
	}
	return false
}

// EvaluateMutating implements the PUT/PATCH/DELETE conditional-request
// evaluation order of §4.4.4: If-Match, then If-Unmodified-Since. Returns
// a PreconditionFailed error if the request must be rejected.
func EvaluateMutating(r *http.Request, exists bool, etag string, lastModified time.Time) error {
	if im := r.Header.Get("If-Match"); im != "" {
		ok := (im == "*" && exists) || (exists && matchesAny(im, etag))
		if !ok {
			return yarerr.New(yarerr.PreconditionFailed, "If-Match precondition failed")
		}
		return nil
	}
	if ius := r.Header.Get("If-Unmodified-Since"); ius != "" {
		t, err := http.ParseTime(ius)
		if err != nil || !exists || lastModified.UTC().Truncate(time.Second).After(t.UTC()) {
			return yarerr.New(yarerr.PreconditionFailed, "If-Unmodified-Since precondition failed")
		}
		return nil
	}
	return nil
}

// matchesAny reports whether etag appears in a comma-separated list of
// quoted ETags (If-Match/If-None-Match may carry several).
func matchesAny(header, etag string) bool {
	quoted := `"` + etag + `"`
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == quoted || part == etag {
			return true
		}
	}
	return false
}
