package segment

import (
	"fmt"
	"strconv"
	"strings"

	"subforge/internal/timecode"
)

// ParseSRT decodes SRT content into segments. Blocks that are structurally
// broken (missing timing line, unparseable index) are skipped rather than
// failing the whole file. The first text line of a block becomes Original and
// the second, when present, Translation.
func ParseSRT(data []byte) []Segment {
	content := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if content == "" {
		return nil
	}
	blocks := strings.Split(content, "\n\n")
	segments := make([]Segment, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 3 {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}
		if !strings.Contains(lines[1], "-->") {
			continue
		}
		parts := strings.Split(lines[1], "-->")
		if len(parts) != 2 {
			continue
		}
		start := timecode.ToSeconds(parts[0])
		end := timecode.ToSeconds(parts[1])
		seg := Segment{
			ID:       fmt.Sprintf("srt-%d", index),
			Index:    index,
			Start:    start,
			End:      end,
			Original: strings.TrimSpace(lines[2]),
		}
		if len(lines) > 3 {
			seg.Translation = strings.TrimSpace(strings.Join(lines[3:], "\n"))
		}
		segments = append(segments, seg)
	}
	return segments
}

// BuildSRT renders segments as SRT text in display order. Indices are emitted
// as stored; callers that need clean numbering run Normalize first. Segments
// whose composed cue is empty are skipped.
func BuildSRT(segments []Segment, mode DisplayMode) []byte {
	var sb strings.Builder
	for _, seg := range segments {
		text := ComposeCue(seg, mode)
		if strings.TrimSpace(text) == "" {
			continue
		}
		sb.WriteString(strconv.Itoa(seg.Index))
		sb.WriteByte('\n')
		sb.WriteString(timecode.FromSeconds(seg.Start))
		sb.WriteString(" --> ")
		sb.WriteString(timecode.FromSeconds(seg.End))
		sb.WriteByte('\n')
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return []byte(sb.String())
}
