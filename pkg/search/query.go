package search

import (
	"strings"

	"thrx-be/internal/constant"
	"thrx-be/internal/entity"
)

// EffectiveQuery rewrites the search query for follow-ups. Quoted text wins;
// otherwise a short question borrows the last user turn of the trail so
// "how tall is it" still finds something.
func EffectiveQuery(text, replyTo string, trail []entity.Message) string {
	if replyTo != "" {
		return replyTo + " " + text
	}
	if len(strings.Split(text, " ")) < constant.ShortQueryWordLimit {
		for i := len(trail) - 1; i >= 0; i-- {
			if trail[i].Role == constant.ChatMessageRoleUser {
				return trail[i].Content + " " + text
			}
		}
	}
	return text
}
