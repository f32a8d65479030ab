package models

// Metadata is the publish metadata attached to an uploaded clip.
type Metadata struct {
	// Title is the video title shown on the platform.
	Title string `json:"title"`

	// Description is the long-form video description.
	Description string `json:"description"`

	// Tags are the platform tags attached to the upload.
	Tags []string `json:"tags"`
}

// Empty reports whether the metadata carries no usable fields.
func (m Metadata) Empty() bool {
	return m.Title == "" && m.Description == "" && len(m.Tags) == 0
}
