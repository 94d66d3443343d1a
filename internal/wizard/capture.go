package wizard

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
)

const dataURLPrefix = "data:image/jpeg;base64,"

// EncodeDataURL encodes a captured frame as a JPEG data URL.
func EncodeDataURL(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("empty frame")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
