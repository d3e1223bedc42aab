package ragseed

import (
	"strings"
	"unicode/utf8"
)

const (
	// maxChunkChars is the soft ceiling for a single chunk. Sections that fit
	// stay whole so retrieval returns coherent passages.
	maxChunkChars = 1000
	// minChunkChars drops fragments too short to carry any signal, such as
	// bare heading lines or stray separators.
	minChunkChars = 20
)

// chunkOverlap is the window overlap applied when a section exceeds
// maxChunkChars and has to be split on character boundaries.
const chunkOverlap = maxChunkChars / 5

// ChunkMarkdown splits a markdown document into retrieval-sized chunks.
// Every heading line starts a new chunk so each section stays self-contained.
// Sections longer than maxChunkChars fall back to fixed character windows
// with a one-fifth overlap so no sentence is lost at a window edge.
func ChunkMarkdown(text string) []string {
	var chunks []string
	for _, section := range splitSections(text) {
		for _, window := range windowSection(section) {
			window = strings.TrimSpace(window)
			if utf8.RuneCountInString(window) < minChunkChars {
				continue
			}
			chunks = append(chunks, window)
		}
	}
	return chunks
}

// splitSections cuts the document at markdown heading lines. The heading
// stays attached to the body that follows it. Text before the first heading
// forms its own section.
func splitSections(text string) []string {
	var sections []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sections = append(sections, s)
		}
		current.Reset()
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			flush()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()
	return sections
}

// windowSection returns the section unchanged when it fits, otherwise fixed
// windows of maxChunkChars stepping by maxChunkChars-chunkOverlap runes.
func windowSection(section string) []string {
	runes := []rune(section)
	if len(runes) <= maxChunkChars {
		return []string{section}
	}
	step := maxChunkChars - chunkOverlap
	var windows []string
	for start := 0; start < len(runes); start += step {
		end := start + maxChunkChars
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}
