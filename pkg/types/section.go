package types

// Section is one logical unit extracted from a chunk by the segmentation
// provider: a titled body with suggested metadata. Sections are the value
// stored in the response cache, so the JSON encoding is part of the cache
// storage format.
type Section struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags,omitempty"`
	Category string   `json:"category,omitempty"`
}
