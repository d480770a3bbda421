package bridge

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Frame is a decoded captured canvas frame.
type Frame struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// decodeFrame turns a captured-frame payload into image bytes. The sandbox
// sends a data URL; whatever it claims, the bytes are sniffed and anything
// that is not an image is rejected.
func decodeFrame(p FramePayload) (*Frame, error) {
	if p.Error != "" {
		return nil, fmt.Errorf("sandbox capture failed: %s", p.Error)
	}
	if p.ImageData == "" {
		return nil, fmt.Errorf("sandbox capture returned no image data")
	}

	encoded := p.ImageData
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 {
			return nil, fmt.Errorf("malformed data URL in captured frame")
		}
		encoded = encoded[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode captured frame: %w", err)
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("captured frame is %s, not an image", mime.String())
	}

	return &Frame{
		Data:   data,
		MIME:   mime.String(),
		Width:  p.Width,
		Height: p.Height,
	}, nil
}
