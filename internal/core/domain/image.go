package domain

// Image is an uploaded image awaiting feature extraction.
type Image struct {
	// Filename is the client-supplied file name. Informational only.
	Filename string

	// Data holds the raw encoded image bytes.
	Data []byte
}

// IsEmpty reports whether the upload carried no image data.
func (i Image) IsEmpty() bool {
	return len(i.Data) == 0
}

// ExtractionBatch pairs uploaded images with caller-chosen ids.
// Images[i] is labelled IDs[i].
type ExtractionBatch struct {
	Images []Image
	IDs    []string
}
