package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"subforge/internal/config"
	"subforge/internal/segment"
)

var subtitleExtensions = map[string]struct{}{
	".srt": {}, ".vtt": {}, ".ass": {}, ".txt": {},
}

func isSubtitlePath(path string) bool {
	_, ok := subtitleExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// loadSubtitleSegments reads and parses a subtitle file into segments.
func loadSubtitleSegments(path string) ([]segment.Segment, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("read subtitle file: %w", err)
	}
	segments := segment.ParseSRT(data)
	if len(segments) == 0 {
		return nil, fmt.Errorf("no cues found in %s", expanded)
	}
	return segments, nil
}

// resolveSources splits a generate/render invocation into the job source and
// the subtitle file carrying the cue payload. A media source needs an
// explicit subtitle companion; transcription is out of band.
func resolveSources(source, subtitleFlag string) (jobSource, subtitlePath string, err error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", "", fmt.Errorf("source file is required")
	}
	expanded, err := config.ExpandPath(source)
	if err != nil {
		return "", "", err
	}
	if isSubtitlePath(expanded) {
		if strings.TrimSpace(subtitleFlag) != "" {
			return "", "", fmt.Errorf("--subtitle is only valid with a media source")
		}
		return expanded, expanded, nil
	}
	subtitle := strings.TrimSpace(subtitleFlag)
	if subtitle == "" {
		return "", "", fmt.Errorf("media source %s needs --subtitle with the transcript to process", expanded)
	}
	expandedSubtitle, err := config.ExpandPath(subtitle)
	if err != nil {
		return "", "", err
	}
	return expanded, expandedSubtitle, nil
}
