package panel

import (
	qrcode "github.com/skip2/go-qrcode"
)

// qrModulePixels is passed as a negative size, which go-qrcode reads as a
// fixed number of pixels per module. The default 4-module quiet zone is kept.
const qrModulePixels = -10

// RenderQR encodes uri as a PNG QR code with low error correction.
func (c *Client) RenderQR(uri string) ([]byte, error) {
	return EncodeQR(uri)
}

func EncodeQR(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Low, qrModulePixels)
}
