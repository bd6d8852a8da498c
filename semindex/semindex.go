// Package semindex implements the hot-swappable label/alias index described
// in section 4.1: an ordered dictionary from lowercased label/alias to a row
// id, plus a row id to full node snapshot map. The whole structure is built
// fresh and swapped atomically; there is no per-entry locking.
package semindex

import (
	"sort"
	"strings"
	"sync"

	"github.com/nlsql/semcore/ontology"
	"github.com/nlsql/semcore/util"
)

// entry is one row of the ordered dictionary tier.
type entry struct {
	key   string
	rowID int
}

// Index is an immutable snapshot of the Semantic Index. Construct with
// Build; once built, an Index is never mutated, only discarded.
type Index struct {
	dict   []entry // sorted by key for binary search
	nodes  map[int]ontology.SemanticNode
	byUUID map[string]int // node.ID -> rowID
}

// Build allocates a fresh row id per node, inserts one dictionary entry per
// (label, alias), and finalizes an immutable lookup structure.
//
// When two nodes share a label or alias, the later node in the input slice
// wins the dictionary entry — this mirrors the source system's behavior,
// which does not guard against label collisions (node_key is unique, but
// labels are a separate, non-unique field). Store.LoadNodes reads without
// ORDER BY, so its row order, and with it the winner of a collision, is not
// guaranteed across rebuilds; for reproducible tests pass nodes already
// sorted by node_key.
func Build(nodes []ontology.SemanticNode) *Index {
	nodeByID := make(map[int]ontology.SemanticNode, len(nodes))
	byUUID := make(map[string]int, len(nodes))
	keyToRow := make(map[string]int)

	for rowID, n := range nodes {
		nodeByID[rowID] = n
		byUUID[n.ID] = rowID
		for _, name := range n.DisplayNames() {
			if name == "" {
				continue
			}
			keyToRow[strings.ToLower(name)] = rowID // last write wins
		}
	}

	dict := make([]entry, 0, len(keyToRow))
	for k, rowID := range keyToRow {
		dict = append(dict, entry{key: k, rowID: rowID})
	}
	sort.Slice(dict, func(i, j int) bool { return dict[i].key < dict[j].key })

	return &Index{dict: dict, nodes: nodeByID, byUUID: byUUID}
}

// Lookup returns the node whose label or an alias exactly equals w
// (case-insensitively), and whether a match was found.
func (idx *Index) Lookup(w string) (ontology.SemanticNode, bool) {
	key := strings.ToLower(w)
	i := sort.Search(len(idx.dict), func(i int) bool { return idx.dict[i].key >= key })
	if i >= len(idx.dict) || idx.dict[i].key != key {
		return ontology.SemanticNode{}, false
	}
	return idx.nodes[idx.dict[i].rowID], true
}

// Node returns a node snapshot by its T-Box id (ontology.SemanticNode.ID),
// used to resolve edge endpoints without a second store round trip.
func (idx *Index) Node(id string) (ontology.SemanticNode, bool) {
	rowID, ok := idx.byUUID[id]
	if !ok {
		return ontology.SemanticNode{}, false
	}
	return idx.nodes[rowID], true
}

// All returns every indexed node, ordered by T-Box id for reproducibility
// across calls against the same Index (useful in tests and for any admin
// surface that dumps the index verbatim).
func (idx *Index) All() []ontology.SemanticNode {
	out := make([]ontology.SemanticNode, 0, len(idx.byUUID))
	for _, rowID := range util.CanonicalMapIter(idx.byUUID) {
		out = append(out, idx.nodes[rowID])
	}
	return out
}

// Holder is the single-writer/multi-reader handle request goroutines and
// the reload routine share. Readers call Get and hold the returned pointer
// for the duration of one request; the writer calls Swap to replace the
// whole structure atomically.
type Holder struct {
	mu  sync.RWMutex
	idx *Index
}

// NewHolder wraps an initial (possibly empty) Index.
func NewHolder(initial *Index) *Holder {
	if initial == nil {
		initial = &Index{nodes: map[int]ontology.SemanticNode{}, byUUID: map[string]int{}}
	}
	return &Holder{idx: initial}
}

// Get returns the currently live Index. Safe for concurrent use with Swap.
func (h *Holder) Get() *Index {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idx
}

// Swap installs a newly built Index, replacing the old one wholesale.
func (h *Holder) Swap(idx *Index) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.idx = idx
}
