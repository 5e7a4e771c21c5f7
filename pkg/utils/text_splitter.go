package utils

// SplitText splits a long string into windows of at most chunkSize runes,
// each overlapping the previous one by overlap runes. It is used as a fallback
// for sentences too long for a single embedding request.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	if chunkSize <= 0 || len(runes) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // overlap >= chunkSize would never advance
	}

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := min(i+chunkSize, len(runes))
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}
