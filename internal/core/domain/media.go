package domain

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
)

// canonicalImageMIME is the format all non-GIF images are re-encoded to
// at ingestion. Because the output type is fixed, normalization is
// idempotent: a canonical payload decodes and re-encodes to itself.
const canonicalImageMIME = "image/png"

// MediaItem is an inline binary payload with its MIME type.
type MediaItem struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}

// Clone returns a copy of the item with its own payload buffer.
func (m MediaItem) Clone() MediaItem {
	data := make([]byte, len(m.Data))
	copy(data, m.Data)
	return MediaItem{Data: data, MIMEType: m.MIMEType}
}

// DataURI renders the item as a data: URI with base64 payload.
func (m MediaItem) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", m.MIMEType, base64.StdEncoding.EncodeToString(m.Data))
}

// MediaFromDataURI parses a data: URI and normalizes the payload.
// Images other than GIFs are re-encoded to PNG so downstream consumers
// see a single canonical format regardless of what the client sent.
func MediaFromDataURI(uri string) (MediaItem, error) {
	if !strings.HasPrefix(uri, "data:") {
		return MediaItem{}, fmt.Errorf("media: not a data URI")
	}
	head, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return MediaItem{}, fmt.Errorf("media: malformed data URI")
	}
	mimeType := strings.TrimPrefix(head, "data:")
	mimeType, _, _ = strings.Cut(mimeType, ";")
	if mimeType == "" {
		return MediaItem{}, fmt.Errorf("media: missing MIME type")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return MediaItem{}, fmt.Errorf("media: decode payload: %w", err)
	}

	if strings.HasPrefix(mimeType, "image/") && mimeType != "image/gif" {
		data, err = reencodePNG(data)
		if err != nil {
			return MediaItem{}, fmt.Errorf("media: normalize image: %w", err)
		}
		mimeType = canonicalImageMIME
	}

	return MediaItem{Data: data, MIMEType: mimeType}, nil
}

func reencodePNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
