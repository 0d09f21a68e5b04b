package textutil

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ParsedName is what a video file name says about its content.
type ParsedName struct {
	Title        string
	EpisodeStart int
	// EpisodeEnd is set for multi-episode files ("03-05"); zero otherwise.
	EpisodeEnd int
}

var (
	bracketPattern = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\{[^}]*\}`)
	techPattern    = regexp.MustCompile(`(?i)\b(?:\d{3,4}p|\d{3,4}x\d{3,4}|[xh]\.?26[45]|hevc|avc|aac(?:2\.0)?|flac|opus|ac3|10-?bit|8-?bit|bluray|blu-ray|bdrip|bd|web-?dl|web-?rip|web|hdtv|dual[ ._-]audio|multi[ ._-]subs?)\b`)
	episodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bS\d{1,2}\s?E(\d{1,4})(?:\s?-\s?E?(\d{1,4}))?(?:v\d)?\b`),
		regexp.MustCompile(`\s-\s(\d{1,4})(?:\s?-\s?(\d{1,4}))?(?:v\d)?(?:\s|$)`),
		regexp.MustCompile(`(?i)\b(?:Ep|Episode|E)\s?(\d{1,4})(?:\s?-\s?(\d{1,4}))?(?:v\d)?\b`),
		regexp.MustCompile(`\s(\d{1,4})(?:-(\d{1,4}))?(?:v\d)?$`),
	}
	spacePattern = regexp.MustCompile(`\s+`)
)

// ParseFilename guesses the title and episode range of a video file name.
// Release-group tags, resolution and codec tokens are ignored. A name with a
// title but no episode number yields EpisodeStart 0. ok is false when no
// title remains.
func ParseFilename(name string) (ParsedName, bool) {
	base := filepath.Base(strings.TrimSpace(name))
	if ext := filepath.Ext(base); ext != "" && len(ext) <= 5 {
		base = strings.TrimSuffix(base, ext)
	}

	cleaned := bracketPattern.ReplaceAllString(base, " ")
	cleaned = techPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.NewReplacer("_", " ", ".", " ").Replace(cleaned)
	cleaned = strings.TrimSpace(spacePattern.ReplaceAllString(cleaned, " "))

	var parsed ParsedName
	title := cleaned
	for _, pattern := range episodePatterns {
		loc := pattern.FindStringSubmatchIndex(cleaned)
		if loc == nil {
			continue
		}
		start, err := strconv.Atoi(cleaned[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		parsed.EpisodeStart = start
		if loc[4] >= 0 {
			if end, err := strconv.Atoi(cleaned[loc[4]:loc[5]]); err == nil && end > start {
				parsed.EpisodeEnd = end
			}
		}
		title = cleaned[:loc[0]]
		break
	}

	parsed.Title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), "-"))
	if parsed.Title == "" {
		return ParsedName{}, false
	}
	return parsed, true
}
