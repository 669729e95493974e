package delivery

import "strings"

// ChunkText splits text into pieces of at most limit runes, preferring
// newline then space boundaries so chunks read naturally. It never splits
// mid-character: limits are counted in runes, not bytes.
func ChunkText(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if limit <= 0 || runeLen(trimmed) <= limit {
		return []string{trimmed}
	}

	var chunks []string
	remaining := []rune(trimmed)
	for len(remaining) > limit {
		cut := breakIndex(remaining, limit)
		chunk := strings.TrimSpace(string(remaining[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = []rune(strings.TrimLeft(string(remaining[cut:]), " \n"))
	}
	if rest := strings.TrimSpace(string(remaining)); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// breakIndex finds the cut position within the first limit runes, preferring
// the last newline, then the last space, then a hard cut at the limit.
func breakIndex(runes []rune, limit int) int {
	window := runes[:limit]
	if i := lastIndexRune(window, '\n'); i > 0 {
		return i
	}
	if i := lastIndexRune(window, ' '); i > 0 {
		return i
	}
	return limit
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
