package specification

import "thrx-be/internal/entity"

// Specification filters chat records read from the key-value store.
type Specification interface {
	IsSatisfiedBy(chat *entity.Chat) bool
}

// SatisfiesAll reports whether chat passes every spec.
func SatisfiesAll(chat *entity.Chat, specs ...Specification) bool {
	for _, spec := range specs {
		if !spec.IsSatisfiedBy(chat) {
			return false
		}
	}
	return true
}
