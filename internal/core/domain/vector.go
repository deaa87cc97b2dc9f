package domain

// VectorEntry is one record of the vector collection.
type VectorEntry struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
	Movie  Movie     `json:"movie"`
	Text   string    `json:"text"`
}

// BuildReport summarizes one catalog rebuild.
type BuildReport struct {
	Movies         int           `json:"movies"`
	IndexKeys      map[Facet]int `json:"index_keys"`
	VectorsIndexed int           `json:"vectors_indexed"`
	VectorsSkipped int           `json:"vectors_skipped"`
	RowsPersisted  int           `json:"rows_persisted"`
}
