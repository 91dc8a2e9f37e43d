package models

// ReactionCount is the number of reactions of one kind in a session.
type ReactionCount struct {
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}
