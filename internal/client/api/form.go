package api

import (
	"bytes"
	"mime/multipart"
	"sort"
)

// Form is a multipart/form-data body. It is encoded in memory so that the
// request can be replayed after a token refresh.
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

// FormFile is one file part.
type FormFile struct {
	Field string
	Name  string
	Data  []byte
}

func (f Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(f.Fields))
	for k := range f.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := w.WriteField(k, f.Fields[k]); err != nil {
			return nil, "", err
		}
	}

	for _, file := range f.Files {
		part, err := w.CreateFormFile(file.Field, file.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
