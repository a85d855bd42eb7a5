package imagepipeline

import (
	"math/rand"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCategory is used when an upload carries no category.
	DefaultCategory = "general"
	// DefaultExtension is used when the original filename has no usable extension.
	DefaultExtension = ".jpg"

	tokenLength    = 8
	maxCategoryLen = 64
)

var (
	// 36^8, the number of distinct tokens
	tokenSpace = int64(2821109907456)

	safeExtension   = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)
	categoryUnsafe  = regexp.MustCompile(`[^A-Za-z0-9-]+`)
	categoryHyphens = regexp.MustCompile(`-{2,}`)
)

// Namer generates storage filenames of the form
// <category>_<unixMillis>_<token><ext>. The token comes from a
// non-cryptographic source and must not be used as an access secret.
type Namer struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewNamer seeds the token source. A zero seed uses the current time.
func NewNamer(seed int64) *Namer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Namer{
		rnd: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// WithClock replaces the time source. Intended for tests and the CLI.
func (n *Namer) WithClock(now func() time.Time) *Namer {
	n.now = now
	return n
}

// Generate builds a filename from category and ext. ext must already be
// path-safe, see ExtensionOf.
func (n *Namer) Generate(category, ext string) string {
	if !safeExtension.MatchString(ext) {
		ext = DefaultExtension
	}
	return SanitizeCategory(category) + "_" +
		strconv.FormatInt(n.now().UnixMilli(), 10) + "_" +
		n.token() + ext
}

func (n *Namer) token() string {
	n.mu.Lock()
	v := n.rnd.Int63n(tokenSpace)
	n.mu.Unlock()

	s := strconv.FormatInt(v, 36)
	if len(s) < tokenLength {
		s = strings.Repeat("0", tokenLength-len(s)) + s
	}
	return s
}

// ExtensionOf returns the original filename's extension verbatim, case
// preserved, or fallback when it is missing or not path-safe. An empty
// fallback means DefaultExtension.
func ExtensionOf(originalName, fallback string) string {
	if fallback == "" {
		fallback = DefaultExtension
	}
	base := baseName(originalName)
	if base == "." || base == "/" {
		return fallback
	}
	ext := path.Ext(base)
	if !safeExtension.MatchString(ext) {
		return fallback
	}
	return ext
}

// SanitizeCategory reduces a free-form category to [A-Za-z0-9-], so the
// result is a single path segment with no "..", no separators and no "_".
func SanitizeCategory(category string) string {
	c := categoryUnsafe.ReplaceAllString(strings.TrimSpace(category), "-")
	c = categoryHyphens.ReplaceAllString(c, "-")
	c = strings.Trim(c, "-")
	if len(c) > maxCategoryLen {
		c = strings.TrimRight(c[:maxCategoryLen], "-")
	}
	if c == "" {
		return DefaultCategory
	}
	return c
}
