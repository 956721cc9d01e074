package haunt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNoImage  = errors.New("no image in heartbeat")
	ErrNotImage = errors.New("heartbeat payload is not an image")
)

// Image is a decoded webcam frame.
type Image struct {
	Data     []byte
	MIMEType string
}

// DecodeImage accepts a data URL or bare base64 and sniffs the content to
// make sure it is an image.
func DecodeImage(payload string) (Image, error) {
	payload = strings.TrimSpace(payload)
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	if payload == "" {
		return Image{}, ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some encoders drop the padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return Image{}, fmt.Errorf("decode heartbeat image: %w", err)
		}
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return Image{}, fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}

	return Image{Data: data, MIMEType: mtype.String()}, nil
}
