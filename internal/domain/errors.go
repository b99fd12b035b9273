package domain

import "fmt"

// EmbeddingError reports a provider or network failure during embedding.
// The document ID is attached when the failure happened during ingestion.
type EmbeddingError struct {
	DocumentID string
	Err        error
}

func (e *EmbeddingError) Error() string {
	if e.DocumentID != "" {
		return fmt.Sprintf("embedding failed for document %s: %v", e.DocumentID, e.Err)
	}
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// RerankError reports a provider or network failure during reranking.
type RerankError struct {
	Err error
}

func (e *RerankError) Error() string {
	return fmt.Sprintf("rerank failed: %v", e.Err)
}

func (e *RerankError) Unwrap() error { return e.Err }

// StoreError reports a query or connection failure against the chunk store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ConfigError reports unusable configuration detected at startup.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
