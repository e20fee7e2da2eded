// Package chunker splits entity text into segments sized for embedding
// models. Long context notes and reasoning traces exceed typical model
// windows, so they are embedded per segment.
package chunker

import "strings"

const (
	// DefaultMaxLen bounds a segment; paragraphs merge up to it.
	DefaultMaxLen = 512
)

// Segments splits text into embedding-sized pieces. Paragraphs (blank-line
// separated) are the preferred boundary; adjacent paragraphs merge while the
// combined length stays within maxLen, and a single oversized paragraph is
// hard-split on line boundaries. Text that already fits comes back as one
// segment. maxLen <= 0 uses DefaultMaxLen.
func Segments(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var segs []string
	var accum string
	for _, para := range paragraphs(text) {
		if accum == "" {
			accum = para
			continue
		}
		if len(accum)+len(para)+2 <= maxLen {
			accum += "\n\n" + para
			continue
		}
		segs = append(segs, splitOversized(accum, maxLen)...)
		accum = para
	}
	if accum != "" {
		segs = append(segs, splitOversized(accum, maxLen)...)
	}
	return segs
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitOversized breaks a paragraph longer than maxLen on line boundaries,
// falling back to a byte split for a single monster line.
func splitOversized(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var out []string
	var current []string
	curLen := 0
	flush := func() {
		if len(current) == 0 {
			return
		}
		s := strings.TrimSpace(strings.Join(current, "\n"))
		if s != "" {
			out = append(out, s)
		}
		current = nil
		curLen = 0
	}

	for _, line := range strings.Split(text, "\n") {
		if len(line) > maxLen {
			flush()
			for len(line) > maxLen {
				out = append(out, line[:maxLen])
				line = line[maxLen:]
			}
			if line != "" {
				current = append(current, line)
				curLen = len(line) + 1
			}
			continue
		}
		if curLen+len(line) > maxLen && len(current) > 0 {
			flush()
		}
		current = append(current, line)
		curLen += len(line) + 1
	}
	flush()
	return out
}
