package domain

// ChunkingStrategy determines how a source document is segmented at
// ingestion time.
type ChunkingStrategy string

const (
	// StrategySingle produces no chunks; only the whole-document embedding
	// is stored. Used for short documents that fit a single context slot.
	StrategySingle ChunkingStrategy = "single"
	// StrategySpeakerTurns batches sentence-level units into fixed-size
	// discussion segments.
	StrategySpeakerTurns ChunkingStrategy = "speaker_turns"
	// StrategyChapters segments by externally supplied chapter boundaries.
	StrategyChapters ChunkingStrategy = "chapters"
)

const (
	// SingleMaxSeconds is the upper bound (exclusive) for the single
	// strategy: 15 minutes.
	SingleMaxSeconds = 900.0
	// SpeakerTurnsMaxSeconds is the upper bound (exclusive) for the
	// speaker-turns strategy: 30 minutes.
	SpeakerTurnsMaxSeconds = 1800.0
)

// SelectStrategy picks a chunking strategy from a document's size proxy.
// Documents at or above the chapters threshold fall back to speaker turns
// when no chapter boundaries are available. Pure and deterministic.
func SelectStrategy(durationSeconds float64, hasChapters bool) ChunkingStrategy {
	switch {
	case durationSeconds < SingleMaxSeconds:
		return StrategySingle
	case durationSeconds < SpeakerTurnsMaxSeconds:
		return StrategySpeakerTurns
	case hasChapters:
		return StrategyChapters
	default:
		return StrategySpeakerTurns
	}
}
