package index

import "strings"

// ChunkWords splits text into overlapping word windows. The last window may
// be shorter; text shorter than one window yields a single chunk. Empty or
// whitespace-only text yields none.
func ChunkWords(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		size = 350
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if len(words) <= size {
		return []string{strings.Join(words, " ")}
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
