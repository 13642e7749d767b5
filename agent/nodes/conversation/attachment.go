package conversationnode

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

// MaxImageDataBytes bounds the encoded data URL accepted from clients.
const MaxImageDataBytes = 16 << 20

var imageDataURL = regexp.MustCompile(`^data:image/(png|jpe?g|gif|webp);base64,`)

// ValidateImageDataURL accepts base64 data URLs of the formats the vision
// provider understands.
func ValidateImageDataURL(raw string) error {
	if len(raw) > MaxImageDataBytes {
		return fmt.Errorf("%w: image exceeds %d bytes", contractx.ErrUnsupportedAttachment, MaxImageDataBytes)
	}
	loc := imageDataURL.FindStringIndex(strings.ToLower(raw[:min(len(raw), 64)]))
	if loc == nil {
		return fmt.Errorf("%w: expected a jpeg, png, gif or webp data url", contractx.ErrUnsupportedAttachment)
	}
	payload := raw[loc[1]:]
	if payload == "" {
		return fmt.Errorf("%w: image payload is empty", contractx.ErrUnsupportedAttachment)
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return fmt.Errorf("%w: invalid base64 payload", contractx.ErrUnsupportedAttachment)
	}
	return nil
}
