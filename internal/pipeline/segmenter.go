package pipeline

// Artifact is a single page image produced by the rasterizer or taken
// directly from an uploaded file. Treated as immutable once created.
type Artifact struct {
	Name string
	MIME string
	Data []byte
}

// Split partitions pages into consecutive chunks of perStudent pages each,
// preserving page order. The final chunk receives the remainder and may be
// shorter. Splitting is purely positional; no content heuristics.
func Split(pages []Artifact, perStudent int) [][]Artifact {
	if len(pages) == 0 || perStudent < 1 {
		return nil
	}

	chunks := make([][]Artifact, 0, (len(pages)+perStudent-1)/perStudent)
	for start := 0; start < len(pages); start += perStudent {
		end := start + perStudent
		if end > len(pages) {
			end = len(pages)
		}
		chunk := make([]Artifact, end-start)
		copy(chunk, pages[start:end])
		chunks = append(chunks, chunk)
	}

	return chunks
}
