package transcribe

import (
	"fmt"
	"os"
	"strings"

	"shortreel/pkg/models"
)

// DefaultWordsPerCue groups transcript words into readable subtitle lines
const DefaultWordsPerCue = 3

// Cue is one subtitle line with its display window in seconds
type Cue struct {
	Text  string
	Start float64
	End   float64
}

// BuildCues groups word timestamps into subtitle cues of up to wordsPerCue
// words each. A cue spans from its first word's start to its last word's end.
func BuildCues(words []models.WordStamp, wordsPerCue int) []Cue {
	if wordsPerCue <= 0 {
		wordsPerCue = DefaultWordsPerCue
	}

	var cues []Cue
	for i := 0; i < len(words); i += wordsPerCue {
		end := i + wordsPerCue
		if end > len(words) {
			end = len(words)
		}
		chunk := words[i:end]

		parts := make([]string, len(chunk))
		for j, w := range chunk {
			parts[j] = w.Word
		}
		cues = append(cues, Cue{
			Text:  strings.Join(parts, " "),
			Start: chunk[0].Start,
			End:   chunk[len(chunk)-1].End,
		})
	}
	return cues
}

// WriteSRT writes cues as a SubRip file
func WriteSRT(cues []Cue, path string) error {
	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", srtTimestamp(cue.Start), srtTimestamp(cue.End))
		fmt.Fprintf(&b, "%s\n\n", cue.Text)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write srt file: %w", err)
	}
	return nil
}

// srtTimestamp formats seconds as the SubRip HH:MM:SS,mmm form
func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(seconds*1000 + 0.5)
	hours := totalMillis / 3600000
	minutes := (totalMillis % 3600000) / 60000
	secs := (totalMillis % 60000) / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// SubtitleStyle holds drawtext styling for burned-in subtitles
type SubtitleStyle struct {
	FontSize     int
	FontColor    string
	OutlineColor string
	OutlineWidth int
	PositionY    string
	FontFile     string
}

// StyleFor returns the burn-in style for a platform. Vertical platforms
// share the bold centered look short-form viewers expect.
func StyleFor(platform models.Platform) SubtitleStyle {
	return SubtitleStyle{
		FontSize:     70,
		FontColor:    "yellow",
		OutlineColor: "black",
		OutlineWidth: 4,
		PositionY:    "h-200",
	}
}

// DrawtextFilter renders cues as a chained drawtext video filter, one
// drawtext per cue gated by an enable window.
func DrawtextFilter(cues []Cue, style SubtitleStyle) string {
	filters := make([]string, 0, len(cues))
	for _, cue := range cues {
		var b strings.Builder
		b.WriteString("drawtext=text='")
		b.WriteString(escapeDrawtext(cue.Text))
		b.WriteString("':")
		if style.FontFile != "" {
			fmt.Fprintf(&b, "fontfile=%s:", style.FontFile)
		}
		fmt.Fprintf(&b, "fontsize=%d:", style.FontSize)
		fmt.Fprintf(&b, "fontcolor=%s:", style.FontColor)
		fmt.Fprintf(&b, "borderw=%d:", style.OutlineWidth)
		fmt.Fprintf(&b, "bordercolor=%s:", style.OutlineColor)
		b.WriteString("x=(w-text_w)/2:")
		fmt.Fprintf(&b, "y=%s:", style.PositionY)
		fmt.Fprintf(&b, "enable='between(t,%.3f,%.3f)'", cue.Start, cue.End)
		filters = append(filters, b.String())
	}
	return strings.Join(filters, ",")
}

// escapeDrawtext escapes characters that break ffmpeg's drawtext parser
func escapeDrawtext(text string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(text)
}
