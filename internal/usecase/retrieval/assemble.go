package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"context-engine/internal/domain"
)

// Assemble orders the expanded chunk set for narrative coherence, assigns
// sequential citation tags, truncates to the context budget, and renders the
// final text block. The (document, section, order) sort is independent of
// the relevance ranking that selected the set.
func Assemble(sc *StageContext, maxContextChunks int) *domain.RetrievalContext {
	chunks := append([]domain.ScoredChunk{}, sc.Expanded...)

	sort.Slice(chunks, func(i, j int) bool {
		a, b := chunks[i].Chunk, chunks[j].Chunk
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		return a.OrderIndex < b.OrderIndex
	})

	if maxContextChunks > 0 && len(chunks) > maxContextChunks {
		chunks = chunks[:maxContextChunks]
	}

	sources := make([]domain.Citation, 0, len(chunks))
	var sb strings.Builder
	for i, sc := range chunks {
		tag := fmt.Sprintf("S%d", i+1)
		c := sc.Chunk

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[#%s] %s | %s\n%s", tag, c.Title, c.Section, c.Content)

		sources = append(sources, domain.Citation{
			DocumentID: c.DocumentID,
			ChunkIndex: c.ChunkIndex,
			Title:      c.Title,
			URL:        c.URL,
			Section:    c.Section,
			UpdatedAt:  c.UpdatedAt,
			Tag:        tag,
		})
	}

	return &domain.RetrievalContext{
		Chunks:      chunks,
		Sources:     sources,
		ContextText: sb.String(),
	}
}
