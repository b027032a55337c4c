package upload

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/maps"
)

// Selection is the pending upload: ordered files plus an optional place.
// It belongs to exactly one Controller.
type Selection struct {
	files []domain.MediaFile
	place *maps.Place
}

// Replace swaps in a new file list, dropping the previous one.
func (s *Selection) Replace(files []domain.MediaFile) {
	s.files = append([]domain.MediaFile(nil), files...)
}

// Remove drops the file at index; later files shift down by one.
func (s *Selection) Remove(index int) bool {
	if index < 0 || index >= len(s.files) {
		return false
	}
	s.files = append(s.files[:index:index], s.files[index+1:]...)
	return true
}

func (s *Selection) Files() []domain.MediaFile {
	return append([]domain.MediaFile(nil), s.files...)
}

func (s *Selection) Len() int { return len(s.files) }

func (s *Selection) SetPlace(p maps.Place) {
	s.place = &p
}

func (s *Selection) ClearPlace() { s.place = nil }

func (s *Selection) Place() *maps.Place {
	if s.place == nil {
		return nil
	}
	p := *s.place
	return &p
}

func (s *Selection) Reset() {
	s.files = nil
	s.place = nil
}

// Thumbnail previews one selected file. Index is the value a remove control sends back.
type Thumbnail struct {
	Index   int
	Name    string
	DataURL string // empty when the file cannot be previewed
}

func thumbnails(files []domain.MediaFile) []Thumbnail {
	out := make([]Thumbnail, 0, len(files))
	for i, f := range files {
		out = append(out, Thumbnail{Index: i, Name: f.Name, DataURL: previewURL(f)})
	}
	return out
}

func previewURL(f domain.MediaFile) string {
	if len(f.Data) == 0 {
		return ""
	}
	contentType := f.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(f.Data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return ""
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}
