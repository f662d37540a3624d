package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes are inspected to detect a content type.
const sniffLen = 3072

var (
	ErrNotFound        = errors.New("image not found")
	ErrUnsupportedType = errors.New("unsupported image type")
)

// allowedImageTypes are the raster formats accepted for inspection photos.
// Scriptable formats such as SVG are never stored.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// declaredAliases maps non-canonical names clients send to the detected name.
var declaredAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
}

// CheckImageType detects the type of head and returns it when it is an
// allowed raster image. A declared type other than application/octet-stream
// must agree with the detected one.
func CheckImageType(declared string, head []byte) (string, error) {
	detected := mediaType(mimetype.Detect(head).String())
	if !allowedImageTypes[detected] {
		return "", fmt.Errorf("%w: detected %s", ErrUnsupportedType, detected)
	}

	declared = mediaType(declared)
	if alias, ok := declaredAliases[declared]; ok {
		declared = alias
	}
	if declared != "" && declared != "application/octet-stream" && declared != detected {
		return "", fmt.Errorf("%w: declared %s but content is %s", ErrUnsupportedType, declared, detected)
	}
	return detected, nil
}

// detectImageType resolves the content type of an upload from its leading
// bytes. The returned reader yields the complete content.
func detectImageType(declared string, r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("reading upload: %w", err)
	}
	head = head[:n]

	contentType, err := CheckImageType(declared, head)
	if err != nil {
		return "", nil, err
	}
	return contentType, io.MultiReader(bytes.NewReader(head), r), nil
}

func mediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return mt
}
