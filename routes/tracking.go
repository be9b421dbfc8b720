package routes

import (
	"outreachengine/config"
	"outreachengine/tracking"
)

func isValidToken(messageID, token string) bool {
	return tracking.ValidToken(messageID, token, config.AppConfig.EncryptionKey)
}

// transparentPixel is a 1x1 transparent GIF.
func transparentPixel() []byte {
	return []byte{
		0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
		0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21,
		0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
		0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
		0x01, 0x00, 0x3b,
	}
}
