package telegram

// Telegram caps a message at 4096 UTF-16 units.
const maxMessageRunes = 3900

// splitMessage cuts text into chunks of at most limit runes, preferring line breaks in the second half of a chunk.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	var out []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}
