package content

import "context"

// Type is the single content category assigned to a message.
type Type string

const (
	TypeText      Type = "text"
	TypePhoto     Type = "photo"
	TypeAnimation Type = "animation"
	TypeVideo     Type = "video"
	TypeVideoNote Type = "video_note"
	TypeVoice     Type = "voice"
	TypeAudio     Type = "audio"
	TypeDocument  Type = "document"
	TypeSticker   Type = "sticker"
)

var placeholders = map[Type]string{
	TypePhoto:     "[photo]",
	TypeAnimation: "[animation]",
	TypeVideo:     "[video]",
	TypeVideoNote: "[video message]",
	TypeVoice:     "[voice message]",
	TypeAudio:     "[audio]",
	TypeDocument:  "[document]",
	TypeSticker:   "[sticker]",
}

// Placeholder is the preview text used when a media message has no text.
func (t Type) Placeholder() string {
	return placeholders[t]
}

// Transcribable reports whether the media carries speech.
func (t Type) Transcribable() bool {
	return t == TypeVoice || t == TypeAudio || t == TypeVideoNote
}

// FallbackScheme prefixes media references that could not be resolved to a URL.
const FallbackScheme = "telegram-file:"

// FallbackReference is stored instead of a URL when file resolution fails.
func FallbackReference(fileID string) string {
	return FallbackScheme + fileID
}

// Content is the classified payload of one message.
type Content struct {
	Type         Type
	Text         string
	FileID       string
	MediaURL     string
	ThumbnailURL string
	FileName     string
	MimeType     string
	FileSize     int64
	Duration     int
	Emoji        string

	// Transcribed is set when Text came from speech recognition.
	Transcribed bool
}

// Preview is the text used for channel previews and titles.
func (c Content) Preview() string {
	if c.Text != "" {
		return c.Text
	}
	if c.Type == TypeSticker && c.Emoji != "" {
		return c.Emoji
	}
	return c.Type.Placeholder()
}

// MediaResolver turns a platform file id into a downloadable URL.
type MediaResolver interface {
	FileURL(ctx context.Context, fileID string) (string, error)
}

// Transcriber converts speech at audioURL into text. It blocks until done.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL, fileName string) (string, error)
}
