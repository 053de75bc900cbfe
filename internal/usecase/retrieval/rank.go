package retrieval

import (
	"sort"
	"time"

	"github.com/kailas-cloud/rfprag/internal/domain/chunk"
	"github.com/kailas-cloud/rfprag/internal/domain/search/result"
	"github.com/kailas-cloud/rfprag/internal/domain/search/source"
)

// candidate is a scored match before sanitization.
type candidate struct {
	match     chunk.Match
	source    source.Source
	composite float64
	breakdown result.Breakdown
}

// rank merges the pinned and general sub-query matches for tenantID:
// foreign-tenant matches are dropped, the rest are tagged, scored,
// deduplicated, ordered and capped at topK. The returned results are
// sanitized.
func (p Policy) rank(
	tenantID, category string, pinned, general []chunk.Match, topK int, now time.Time,
) ([]result.Ranked, result.Stats) {
	var stats result.Stats
	d := newDeduper(len(pinned) + len(general))

	add := func(matches []chunk.Match, fromPinned bool) {
		for i := range matches {
			m := &matches[i]
			if m.Metadata().TenantID != tenantID {
				stats.ForeignDropped++
				continue
			}
			src := classify(m, fromPinned)
			composite, b := p.score(m, src, category, now)
			if !d.add(candidate{match: *m, source: src, composite: composite, breakdown: b}) {
				stats.Deduplicated++
			}
		}
	}
	add(pinned, true)
	add(general, false)

	cands := d.list()
	sort.SliceStable(cands, func(i, j int) bool { return better(&cands[i], &cands[j]) })
	if topK > 0 && len(cands) > topK {
		cands = cands[:topK]
	}

	results := make([]result.Ranked, 0, len(cands))
	for i := range cands {
		c := &cands[i]
		md, redacted := sanitize(&c.match, tenantID)
		if redacted {
			stats.Redacted++
		}
		results = append(results, result.New(c.match.ID(), c.match.Score(), c.composite, c.source, md, c.breakdown))
	}
	stats.Count(results)
	return results, stats
}

// classify derives provenance from the sub-query and metadata only.
func classify(m *chunk.Match, fromPinned bool) source.Source {
	if fromPinned {
		return source.Pinned
	}
	md := m.Metadata()
	if md.HistoricalRfp || md.Purpose == chunk.PurposeResponse {
		return source.Historical
	}
	return source.Support
}

// better orders by composite desc, then provenance priority, then createdAt
// desc. The chunk id makes the order total.
func better(a, b *candidate) bool {
	if a.composite != b.composite {
		return a.composite > b.composite
	}
	if pa, pb := a.source.Priority(), b.source.Priority(); pa != pb {
		return pa > pb
	}
	ta, tb := a.match.Metadata().CreatedAt, b.match.Metadata().CreatedAt
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a.match.ID() < b.match.ID()
}

// deduper keeps one candidate per chunk identity. Two matches are the same
// chunk when they share an id, or a document id and identical text.
type deduper struct {
	cands     []candidate
	byID      map[string]int
	byContent map[string]int
}

func newDeduper(n int) *deduper {
	return &deduper{
		cands:     make([]candidate, 0, n),
		byID:      make(map[string]int, n),
		byContent: make(map[string]int, n),
	}
}

// add stores c and reports whether it was new. A duplicate replaces the
// stored candidate only when it ranks higher.
func (d *deduper) add(c candidate) bool {
	idx, dup := d.byID[c.match.ID()]
	ck := contentKey(&c.match)
	if !dup && ck != "" {
		idx, dup = d.byContent[ck]
	}
	if !dup {
		d.index(len(d.cands), &c)
		d.cands = append(d.cands, c)
		return true
	}
	if better(&c, &d.cands[idx]) {
		d.cands[idx] = c
	}
	d.index(idx, &c)
	return false
}

func (d *deduper) index(i int, c *candidate) {
	d.byID[c.match.ID()] = i
	if ck := contentKey(&c.match); ck != "" {
		d.byContent[ck] = i
	}
}

func (d *deduper) list() []candidate { return d.cands }

func contentKey(m *chunk.Match) string {
	md := m.Metadata()
	if md.DocumentID == "" || md.Text == "" {
		return ""
	}
	return md.DocumentID + "\x00" + md.Text
}
