// File: internal/services/ingest/config.go
package ingest

import "fmt"

const ContentTypePDF = "application/pdf"

type Config struct {
	MaxBytes      int64  // Largest accepted upload
	Bucket        string // Blob bucket for source files
	ChunkSize     int    // Characters per indexed chunk
	ChunkOverlap  int    // Characters shared by neighbouring chunks
	TitleMaxRunes int
}

func (c *Config) Validate() error {
	if c.MaxBytes <= 0 {
		return fmt.Errorf("max_bytes must be positive")
	}
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size)")
	}
	if c.TitleMaxRunes <= 0 {
		return fmt.Errorf("title_max_runes must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		MaxBytes:      5 << 20,
		Bucket:        "uploads",
		ChunkSize:     1000,
		ChunkOverlap:  200,
		TitleMaxRunes: 100,
	}
}
