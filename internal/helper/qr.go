package helper

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
)

// QRRenderer turns a raw pairing challenge into an embeddable data URL.
type QRRenderer struct {
	Format string // "png" or "webp"
	Size   int
}

func (r QRRenderer) DataURL(code string) (string, error) {
	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}

	size := r.Size
	if size <= 0 {
		size = 256
	}
	img := q.Image(size)

	var buf bytes.Buffer
	mime := "image/png"
	switch r.Format {
	case "webp":
		mime = "image/webp"
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
			return "", fmt.Errorf("encode webp: %w", err)
		}
	default:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return "", fmt.Errorf("encode png: %w", err)
		}
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
