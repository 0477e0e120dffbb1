package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

// uploadForm is a multipart body read in request order.
//
// Every part that carries a filename parameter is a file, including one
// whose filename is empty. Those become empty images so repeated file
// fields stay positionally paired with their ids.
type uploadForm struct {
	files  map[string][]domain.Image
	values map[string][]string
}

// readForm reads a size-capped multipart body part by part. Parts are held
// in memory only; nothing is written to disk.
func (s *Server) readForm(w http.ResponseWriter, r *http.Request) (*uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, formError(err)
	}

	form := &uploadForm{
		files:  make(map[string][]domain.Image),
		values: make(map[string][]string),
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return nil, formError(err)
		}
		err = form.add(part)
		_ = part.Close()
		if err != nil {
			return nil, formError(err)
		}
	}
}

func (f *uploadForm) add(part *multipart.Part) error {
	name := part.FormName()
	if name == "" {
		return nil
	}

	data, err := io.ReadAll(part)
	if err != nil {
		return err
	}

	if !isFilePart(part) {
		f.values[name] = append(f.values[name], string(data))
		return nil
	}

	var img domain.Image
	if filename := part.FileName(); filename != "" {
		img = domain.Image{Filename: filename, Data: data}
	}
	f.files[name] = append(f.files[name], img)
	return nil
}

// value returns the first value of a text field.
func (f *uploadForm) value(name string) string {
	if vs := f.values[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// isFilePart reports whether the part's Content-Disposition has a filename
// parameter, empty or not.
func isFilePart(part *multipart.Part) bool {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return false
	}
	_, ok := params["filename"]
	return ok
}

// formError keeps the body limit error for the 413 mapping and reports
// anything else as client input.
func formError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return fmt.Errorf("%w: malformed multipart body: %v", domain.ErrInvalidInput, err)
}
