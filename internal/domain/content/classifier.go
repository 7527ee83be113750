package content

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/domain/update"
)

// Classifier assigns exactly one content type to a message and resolves its media.
type Classifier struct {
	media       MediaResolver
	transcriber Transcriber
	log         zerolog.Logger
}

// NewClassifier builds a classifier. transcriber may be nil.
func NewClassifier(media MediaResolver, transcriber Transcriber, log zerolog.Logger) *Classifier {
	return &Classifier{
		media:       media,
		transcriber: transcriber,
		log:         log.With().Str("component", "content-classifier").Logger(),
	}
}

// Classify never fails: unresolvable media falls back to a file reference and a
// failed transcription leaves the text empty.
func (c *Classifier) Classify(ctx context.Context, msg *update.Message) Content {
	out := Detect(msg)
	if out.FileID == "" {
		return out
	}

	out.MediaURL = c.resolve(ctx, out.FileID)
	if thumb := thumbnailOf(msg, out.Type); thumb != "" {
		out.ThumbnailURL = c.resolve(ctx, thumb)
	}

	if out.Text == "" && out.Type.Transcribable() && c.transcriber != nil && out.MediaURL != FallbackReference(out.FileID) {
		fileName := out.FileName
		if fileName == "" {
			fileName = fmt.Sprintf("%s.ogg", out.Type)
		}
		text, err := c.transcriber.Transcribe(ctx, out.MediaURL, fileName)
		if err != nil {
			c.log.Warn().Err(err).Str("content_type", string(out.Type)).Msg("transcription failed")
		} else if text != "" {
			out.Text = text
			out.Transcribed = true
		}
	}

	return out
}

func (c *Classifier) resolve(ctx context.Context, fileID string) string {
	if c.media == nil {
		return FallbackReference(fileID)
	}
	url, err := c.media.FileURL(ctx, fileID)
	if err != nil || url == "" {
		c.log.Warn().Err(err).Str("file_id", fileID).Msg("media resolution failed, storing file reference")
		return FallbackReference(fileID)
	}
	return url
}

// Detect applies the fixed precedence photo > animation > video > video_note > voice >
// audio > document > sticker > text without touching the network.
func Detect(msg *update.Message) Content {
	out := Content{Type: TypeText, Text: msg.Body()}

	switch {
	case len(msg.Photo) > 0:
		p := msg.LargestPhoto()
		out.Type, out.FileID, out.FileSize = TypePhoto, p.FileID, p.FileSize
	case msg.Animation != nil:
		a := msg.Animation
		out.Type, out.FileID, out.FileName, out.MimeType, out.FileSize, out.Duration =
			TypeAnimation, a.FileID, a.FileName, a.MimeType, a.FileSize, a.Duration
	case msg.Video != nil:
		v := msg.Video
		out.Type, out.FileID, out.FileName, out.MimeType, out.FileSize, out.Duration =
			TypeVideo, v.FileID, v.FileName, v.MimeType, v.FileSize, v.Duration
	case msg.VideoNote != nil:
		v := msg.VideoNote
		out.Type, out.FileID, out.FileSize, out.Duration = TypeVideoNote, v.FileID, v.FileSize, v.Duration
		out.MimeType, out.FileName = "video/mp4", "video_note.mp4"
	case msg.Voice != nil:
		v := msg.Voice
		out.Type, out.FileID, out.MimeType, out.FileSize, out.Duration = TypeVoice, v.FileID, v.MimeType, v.FileSize, v.Duration
		out.FileName = "voice.ogg"
	case msg.Audio != nil:
		a := msg.Audio
		out.Type, out.FileID, out.FileName, out.MimeType, out.FileSize, out.Duration =
			TypeAudio, a.FileID, a.FileName, a.MimeType, a.FileSize, a.Duration
	case msg.Document != nil:
		d := msg.Document
		out.Type, out.FileID, out.FileName, out.MimeType, out.FileSize = TypeDocument, d.FileID, d.FileName, d.MimeType, d.FileSize
	case msg.Sticker != nil:
		s := msg.Sticker
		out.Type, out.FileID, out.FileSize, out.Emoji = TypeSticker, s.FileID, s.FileSize, s.Emoji
		if out.Text == "" {
			out.Text = s.Emoji
		}
	}

	return out
}

func thumbnailOf(msg *update.Message, t Type) string {
	var thumb *update.PhotoSize
	switch t {
	case TypeAnimation:
		thumb = msg.Animation.Thumbnail
	case TypeVideo:
		thumb = msg.Video.Thumbnail
	case TypeVideoNote:
		thumb = msg.VideoNote.Thumbnail
	case TypeAudio:
		thumb = msg.Audio.Thumbnail
	case TypeDocument:
		thumb = msg.Document.Thumbnail
	case TypeSticker:
		thumb = msg.Sticker.Thumbnail
	}
	if thumb == nil {
		return ""
	}
	return thumb.FileID
}
