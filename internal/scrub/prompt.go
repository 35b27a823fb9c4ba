package scrub

import "fmt"

// buildSystemPrompt parameterizes the noise-filter instructions with the media
// length so the model can recognize premature outro phrases.
func buildSystemPrompt(videoLengthSec float64) string {
	return fmt.Sprintf(`You are a transcript noise filter for subtitles. The media is %.0f seconds long.

You receive numbered transcript lines in the form "<index> @ <start_sec>: <text>".

For each line decide one of:
- keep: the line is real speech; return it unchanged.
- clean: the line mixes real speech with noise, spam, or a premature outro
  phrase (outro phrases only count as noise when start_sec < %.0f); return the
  line with the noise removed.
- delete: the line is pure noise, gibberish, or spam; return the line with
  empty text.

Rules:
- Preserve sentence punctuation exactly.
- Preserve commas inside digit groups (e.g. 1,250,000) exactly.
- Never merge, split, or reorder lines.
- Respond with one line per input line, each formatted exactly as:
@@LINE@@ <index>: <text>`, videoLengthSec, videoLengthSec*0.9)
}

// buildUserPrompt renders the line-indexed batch payload.
func buildUserPrompt(lines []promptLine) string {
	out := ""
	for _, line := range lines {
		out += fmt.Sprintf("%d @ %.2f: %s\n", line.index, line.startSec, line.text)
	}
	return out
}

type promptLine struct {
	index    int
	startSec float64
	text     string
}
