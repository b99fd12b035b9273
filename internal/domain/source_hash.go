package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// SourceHashPolicy computes a stable hash for a document's source content.
// It covers every field that feeds the indexed output: title, summary,
// duration, keywords, chapters and units. Same inputs (normalized) yield the
// same hash, which lets the indexer skip re-embedding an unchanged document.
type SourceHashPolicy interface {
	Compute(doc *Document) string
}

type sourceHashPolicy struct{}

// NewSourceHashPolicy creates the default SourceHashPolicy.
func NewSourceHashPolicy() SourceHashPolicy {
	return &sourceHashPolicy{}
}

// Compute returns the SHA-256 hash of the normalized source fields. Values
// are joined with null bytes and each repeated group carries a type prefix,
// so field and group boundaries stay unambiguous. Duration, keywords and
// chapters are included because they steer strategy selection, sectioning
// and the document embedding.
func (p *sourceHashPolicy) Compute(doc *Document) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(doc.Title))
	sb.WriteByte(0)
	sb.WriteString(strings.TrimSpace(doc.Summary))
	sb.WriteByte(0)
	sb.WriteString(strconv.FormatFloat(doc.DurationSeconds, 'g', -1, 64))
	for _, k := range doc.Keywords {
		sb.WriteByte(0)
		sb.WriteString("k:")
		sb.WriteString(strings.TrimSpace(k))
	}
	for _, c := range doc.Chapters {
		sb.WriteByte(0)
		sb.WriteString("c:")
		sb.WriteString(strings.TrimSpace(c.Title))
		sb.WriteByte(0)
		sb.WriteString(strconv.Itoa(c.StartUnit))
		sb.WriteByte(0)
		sb.WriteString(strconv.Itoa(c.EndUnit))
	}
	for _, u := range doc.Units {
		sb.WriteByte(0)
		sb.WriteString("u:")
		sb.WriteString(u.Speaker)
		sb.WriteByte(0)
		sb.WriteString(strings.TrimSpace(u.Text))
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}
