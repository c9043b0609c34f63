package upload

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// SniffLen is the number of leading bytes inspected.
const SniffLen = 512

var allowedImageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var allowedImageMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateImageBySniff checks the provided filename (extension) and the first bytes (head)
// against a whitelist of image types. Returns detected mime or an error.
func ValidateImageBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExt[ext] {
		return "", errors.New("Formats d'image acceptés : JPG, JPEG, PNG, GIF, WEBP")
	}

	detected := http.DetectContentType(head)

	// Block obvious scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", errors.New("Type de fichier invalide : contenu HTML refusé")
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return "", errors.New("Les fichiers SVG/XML ne sont pas acceptés")
	}

	if allowedImageMime[detected] {
		return detected, nil
	}
	return "", errors.New("Type de fichier non pris en charge")
}

var pdfMagic = []byte("%PDF-")

// ValidateDocumentBySniff accepts PDF files and EPUB archives. EPUB is a zip
// whose first entry is the "mimetype" file.
func ValidateDocumentBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		if !bytes.HasPrefix(head, pdfMagic) {
			return "", errors.New("Le fichier n'est pas un PDF valide")
		}
		return "application/pdf", nil
	case ".epub":
		if http.DetectContentType(head) != "application/zip" || !bytes.Contains(head, []byte("application/epub+zip")) {
			return "", errors.New("Le fichier n'est pas un EPUB valide")
		}
		return "application/epub+zip", nil
	}
	return "", errors.New("Formats de document acceptés : PDF, EPUB")
}

// Head reads the first bytes of an uploaded file.
func Head(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, SniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}
