// Package tokenizer wraps a Chinese-capable word segmenter behind a
// single-writer/multi-reader lock, matching the locking discipline used for
// the Semantic Index (section 4.2, section 5). Unlike the index, the
// segmenter is long-lived: refresh is additive, not rebuild-and-swap.
package tokenizer

import (
	"strings"
	"sync"

	"github.com/go-ego/gse"
)

// customWordFrequency is the fixed frequency every business-salient word is
// inserted with, so the segmenter always prefers to keep it as one token
// rather than over-splitting it. gse ranks candidate segmentations by
// frequency; this value is well above anything in the bundled dictionary.
const customWordFrequency = 1000
const customWordPOS = "nz"

// Tokenizer segments free-text queries and accepts hot-loaded custom
// dictionary words. The zero value is not usable; construct with New.
type Tokenizer struct {
	mu  sync.RWMutex
	seg gse.Segmenter
	// seen tracks words already injected this process lifetime so
	// RefreshCustomWords stays idempotent without re-adding duplicates.
	seen map[string]struct{}
}

// New loads the default dictionary bundled with gse. A custom dictionary
// path may be supplied for environments that ship their own base
// vocabulary; pass "" to use the embedded default.
func New(dictPath string) (*Tokenizer, error) {
	var seg gse.Segmenter
	var err error
	if dictPath != "" {
		err = seg.LoadDict(dictPath)
	} else {
		err = seg.LoadDict()
	}
	if err != nil {
		return nil, err
	}
	return &Tokenizer{seg: seg, seen: make(map[string]struct{})}, nil
}

// Tokenize segments text into an ordered token sequence. It acquires shared
// access to the underlying segmenter, matching the concurrency model in
// section 5: readers may proceed concurrently with each other but wait out
// an in-flight RefreshCustomWords.
func (t *Tokenizer) Tokenize(text string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	raw := t.seg.Cut(text, true)
	tokens := make([]string, 0, len(raw))
	for _, s := range raw {
		tok := strings.TrimSpace(s)
		if tok == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// RefreshCustomWords injects every business-salient string — every node
// label, every alias, every A-Box value_label — as a high-priority
// dictionary entry so the segmenter will not split them mid-word. The
// operation is idempotent and additive: words already injected this
// process lifetime are skipped, and no full dictionary rebuild happens.
//
// Callers must acquire no other lock while holding this one; refresh runs
// under an exclusive lock on the tokenizer (section 4.2).
func (t *Tokenizer) RefreshCustomWords(words []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := t.seen[w]; ok {
			continue
		}
		t.seg.AddToken(w, customWordFrequency, customWordPOS)
		t.seen[w] = struct{}{}
	}
}
