package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

const maxImageBytes = 5 << 20

// readImage достаёт файл из multipart-поля "image" и определяет его тип по содержимому.
func readImage(w http.ResponseWriter, r *http.Request) (multipart.File, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+1024)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return nil, "", fmt.Errorf("invalid multipart form: %w", err)
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", errors.New("image file is required")
		}
		return nil, "", err
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		file.Close()
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	contentType := http.DetectContentType(head[:n])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, "", fmt.Errorf("failed to rewind image: %w", err)
	}
	return file, contentType, nil
}
