package model

type DocumentChunk struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Source    string    `json:"source"`
	Index     int       `json:"index"`
	Start     int       `json:"start"`
	End       int       `json:"end"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

type Evidence struct {
	Chunk DocumentChunk `json:"chunk"`
	Score float64       `json:"score"`
}

type EvidenceRef struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Index   int     `json:"index"`
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Score   float64 `json:"score"`
}

func (e Evidence) Ref() EvidenceRef {
	return EvidenceRef{
		ChunkID: e.Chunk.ID,
		Source:  e.Chunk.Source,
		Index:   e.Chunk.Index,
		Start:   e.Chunk.Start,
		End:     e.Chunk.End,
		Score:   e.Score,
	}
}
