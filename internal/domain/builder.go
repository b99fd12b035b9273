package domain

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultSpeakerTurnBatchSize is the number of sentence-level units
	// grouped into one discussion segment.
	DefaultSpeakerTurnBatchSize = 20
	// DefaultMaxChunkChars is the maximum chunk length in characters.
	// Longer section texts are split at sentence boundaries.
	DefaultMaxChunkChars = 1000
)

// ChunkBuilder applies a chunking strategy to a document's units, producing
// ordered chunk records with contiguous OrderIndex starting at 0 within each
// (document, section) pair.
type ChunkBuilder struct {
	BatchSize     int
	MaxChunkChars int
}

// NewChunkBuilder creates a builder with the default batch size and chunk
// length limit.
func NewChunkBuilder() *ChunkBuilder {
	return &ChunkBuilder{
		BatchSize:     DefaultSpeakerTurnBatchSize,
		MaxChunkChars: DefaultMaxChunkChars,
	}
}

// Build produces the chunk set for the given strategy. StrategySingle and a
// document with zero extractable units both yield zero chunks; neither is an
// error.
func (b *ChunkBuilder) Build(doc *Document, strategy ChunkingStrategy) []Chunk {
	if doc == nil || len(doc.Units) == 0 {
		return nil
	}

	switch strategy {
	case StrategySingle:
		return nil
	case StrategyChapters:
		if len(doc.Chapters) == 0 {
			return b.buildSpeakerTurns(doc)
		}
		return b.buildChapters(doc)
	default:
		return b.buildSpeakerTurns(doc)
	}
}

type sectionSpan struct {
	label     string
	startUnit int
	endUnit   int // exclusive
}

// buildSpeakerTurns partitions the unit sequence into fixed-size batches,
// each labeled as a numbered discussion segment.
func (b *ChunkBuilder) buildSpeakerTurns(doc *Document) []Chunk {
	batchSize := b.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultSpeakerTurnBatchSize
	}

	var spans []sectionSpan
	for start := 0; start < len(doc.Units); start += batchSize {
		end := start + batchSize
		if end > len(doc.Units) {
			end = len(doc.Units)
		}
		spans = append(spans, sectionSpan{
			label:     fmt.Sprintf("Discussion segment %d", len(spans)+1),
			startUnit: start,
			endUnit:   end,
		})
	}

	return b.chunksFromSpans(doc, spans)
}

// buildChapters uses supplied chapter boundaries directly, or partitions the
// unit sequence proportionally to chapter count when only titles are known.
func (b *ChunkBuilder) buildChapters(doc *Document) []Chunk {
	allRanged := true
	for _, ch := range doc.Chapters {
		if !ch.HasRange() {
			allRanged = false
			break
		}
	}

	var spans []sectionSpan
	if allRanged {
		for _, ch := range doc.Chapters {
			start, end := ch.StartUnit, ch.EndUnit
			if start >= len(doc.Units) {
				continue
			}
			if end > len(doc.Units) {
				end = len(doc.Units)
			}
			spans = append(spans, sectionSpan{
				label:     chapterLabel(ch),
				startUnit: start,
				endUnit:   end,
			})
		}
	} else {
		n := len(doc.Chapters)
		total := len(doc.Units)
		for i, ch := range doc.Chapters {
			start := i * total / n
			end := (i + 1) * total / n
			if start >= end {
				continue
			}
			spans = append(spans, sectionSpan{
				label:     chapterLabel(ch),
				startUnit: start,
				endUnit:   end,
			})
		}
	}

	return b.chunksFromSpans(doc, spans)
}

// chunksFromSpans renders each span's units to text, splits overlong
// sections at sentence boundaries, and assigns chunk and order indexes.
func (b *ChunkBuilder) chunksFromSpans(doc *Document, spans []sectionSpan) []Chunk {
	var chunks []Chunk
	chunkIndex := 0

	for _, span := range spans {
		units := doc.Units[span.startUnit:span.endUnit]

		var lines []string
		speakerSet := make(map[string]struct{})
		for _, u := range units {
			text := strings.TrimSpace(u.Text)
			if text == "" {
				continue
			}
			if u.Speaker != "" {
				speakerSet[u.Speaker] = struct{}{}
				lines = append(lines, u.Speaker+": "+text)
			} else {
				lines = append(lines, text)
			}
		}
		if len(lines) == 0 {
			continue
		}

		speakers := make([]string, 0, len(speakerSet))
		for s := range speakerSet {
			speakers = append(speakers, s)
		}
		sort.Strings(speakers)

		pieces := splitSectionText(strings.Join(lines, "\n"), b.MaxChunkChars)
		for orderIndex, piece := range pieces {
			chunks = append(chunks, Chunk{
				DocumentID: doc.ID,
				ChunkIndex: chunkIndex,
				Section:    span.label,
				OrderIndex: orderIndex,
				Content:    piece,
				Speakers:   speakers,
				StartUnit:  span.startUnit,
				EndUnit:    span.endUnit,
				Title:      doc.Title,
				URL:        doc.URL,
				UpdatedAt:  doc.UpdatedAt,
			})
			chunkIndex++
		}
	}

	return chunks
}

func chapterLabel(ch Chapter) string {
	if ch.Title != "" {
		return ch.Title
	}
	return ch.Gist
}
