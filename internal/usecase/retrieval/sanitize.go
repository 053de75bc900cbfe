package retrieval

import (
	"regexp"

	"github.com/kailas-cloud/rfprag/internal/domain/chunk"
	"github.com/kailas-cloud/rfprag/internal/domain/search/result"
)

// sanitize projects a match onto the caller-facing whitelist. Quarantined
// keys never make it out. It reports whether the text had to be redacted.
func sanitize(m *chunk.Match, tenantID string) (result.Metadata, bool) {
	md := m.Metadata()
	text, redacted := redactText(md.Text, tenantID)
	return result.Metadata{
		DocumentID:      md.DocumentID,
		TenantID:        md.TenantID,
		Category:        md.Category,
		Text:            text,
		CreatedAt:       md.CreatedAt,
		DocumentPurpose: string(md.Purpose),
		RfpID:           md.RfpID,
	}, redacted
}

// redactText removes every case-insensitive occurrence of the tenant id and of
// the word "tenant". Removal repeats until nothing matches, since deleting
// one occurrence can join its neighbours into a new one.
func redactText(text, tenantID string) (string, bool) {
	pattern := `(?i)tenant`
	if tenantID != "" {
		pattern = `(?i)(?:` + regexp.QuoteMeta(tenantID) + `|tenant)`
	}
	re := regexp.MustCompile(pattern)

	redacted := false
	for re.MatchString(text) {
		text = re.ReplaceAllLiteralString(text, "")
		redacted = true
	}
	return text, redacted
}
