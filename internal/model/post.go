package model

// Post is the single persisted record.
//
// ID is assigned by the store on insert and never changes afterwards. Title
// and Author are expected to be non-empty, but that rule belongs to entry
// validation, not to storage.
type Post struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

// Lookup is one emission of a by-id live query.
// Found is false when no row with the requested id exists.
type Lookup struct {
	Post  Post
	Found bool
}
