package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"finguard/internal/logging"
)

const maxChunkLen = 1200

// IngestDir indexes every markdown and text file under dir. Missing dirs
// are not an error so a fresh install starts with an empty base.
func (b *Base) IngestDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		logging.Knowledge("Docs directory %s does not exist, skipping ingest", dir)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read docs directory: %w", err)
	}

	indexed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isDocFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := b.IngestFile(ctx, path); err != nil {
			logging.Knowledge("Failed to ingest %s: %v", path, err)
			continue
		}
		indexed++
	}
	logging.Knowledge("Ingested %d documents from %s", indexed, dir)
	return nil
}

// IngestFile chunks and indexes one document.
func (b *Base) IngestFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	text := string(data)
	chunks := splitChunks(text)
	if len(chunks) == 0 {
		return b.RemoveDocument(path)
	}
	return b.ReplaceDocument(ctx, path, docTitle(path, text), chunks)
}

func isDocFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".txt":
		return true
	}
	return false
}

// docTitle prefers the first markdown heading, falling back to the file
// name without extension.
func docTitle(path, text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
		if line != "" {
			break
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// splitChunks breaks a document on blank lines, packing paragraphs into
// chunks up to maxChunkLen. A single oversized paragraph becomes its own
// chunk rather than being split mid-sentence.
func splitChunks(text string) []string {
	paragraphs := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")

	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(p) > maxChunkLen {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
