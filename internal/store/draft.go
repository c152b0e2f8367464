package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/utafrali/fitvibe/internal/api"
	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/internal/notify"
	"github.com/utafrali/fitvibe/internal/preview"
	"github.com/utafrali/fitvibe/pkg/validator"
)

// NewImage is a picked file that has not been uploaded yet.
type NewImage struct {
	Name        string
	ContentType string
	PreviewURL  string
	data        []byte
}

// Draft is the composer or editor form of a review. Existing holds URLs of
// images already on the review; New holds fresh picks. The image cap counts
// both.
type Draft struct {
	mu       sync.Mutex
	rating   int
	title    string
	comment  string
	existing []string
	fresh    []NewImage

	previews *preview.Registry
	notifier notify.Notifier
}

func newDraft(previews *preview.Registry, notifier notify.Notifier) *Draft {
	return &Draft{previews: previews, notifier: notifier}
}

// SetFields sets the text fields and rating.
func (d *Draft) SetFields(rating int, title, comment string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rating, d.title, d.comment = rating, title, comment
}

// Fields returns the rating and text fields.
func (d *Draft) Fields() (rating int, title, comment string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rating, d.title, d.comment
}

// AddImage adds a picked file. When the draft is already at the cap the pick
// is dropped with a warning and false is returned.
func (d *Draft) AddImage(name, contentType string, data []byte) bool {
	d.mu.Lock()
	if len(d.existing)+len(d.fresh) >= domain.MaxImages {
		d.mu.Unlock()
		d.notifier.Notify(notify.LevelWarning, fmt.Sprintf("You can add up to %d images", domain.MaxImages))
		return false
	}
	d.fresh = append(d.fresh, NewImage{
		Name:        name,
		ContentType: contentType,
		PreviewURL:  d.previews.Create(data),
		data:        data,
	})
	d.mu.Unlock()
	return true
}

// RemoveNewImage drops the i-th fresh pick and revokes its preview.
func (d *Draft) RemoveNewImage(i int) bool {
	d.mu.Lock()
	if i < 0 || i >= len(d.fresh) {
		d.mu.Unlock()
		return false
	}
	img := d.fresh[i]
	d.fresh = slices.Delete(d.fresh, i, i+1)
	d.mu.Unlock()

	d.previews.Revoke(img.PreviewURL)
	return true
}

// RemoveExistingImage drops an already uploaded image from the review.
func (d *Draft) RemoveExistingImage(url string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := slices.Index(d.existing, url)
	if i < 0 {
		return false
	}
	d.existing = slices.Delete(d.existing, i, i+1)
	return true
}

// ExistingImages returns the kept URLs.
func (d *Draft) ExistingImages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.existing)
}

// NewImages returns the fresh picks.
func (d *Draft) NewImages() []NewImage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.fresh)
}

// ImageCount counts existing and fresh images together.
func (d *Draft) ImageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.existing) + len(d.fresh)
}

// release revokes every fresh preview and drops the picks. Safe to call more
// than once.
func (d *Draft) release() {
	d.mu.Lock()
	urls := make([]string, 0, len(d.fresh))
	for _, img := range d.fresh {
		urls = append(urls, img.PreviewURL)
	}
	d.fresh = nil
	d.mu.Unlock()
	for _, u := range urls {
		d.previews.Revoke(u)
	}
}

type draftInput struct {
	Rating  int      `json:"rating" validate:"required,min=1,max=5"`
	Title   string   `json:"title" validate:"max=100"`
	Comment string   `json:"comment" validate:"max=2000"`
	Images  []string `json:"images" validate:"max=3"`
}

// validate checks the draft without touching the network.
func (d *Draft) validate() error {
	d.mu.Lock()
	in := draftInput{Rating: d.rating, Title: d.title, Comment: d.comment}
	in.Images = slices.Clone(d.existing)
	for _, img := range d.fresh {
		in.Images = append(in.Images, img.PreviewURL)
	}
	d.mu.Unlock()
	return validator.Check(in)
}

func (d *Draft) uploads() []api.Upload {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]api.Upload, len(d.fresh))
	for i, img := range d.fresh {
		out[i] = api.Upload{Name: img.Name, ContentType: img.ContentType, Data: img.data}
	}
	return out
}

func (d *Draft) createInput() api.ReviewInput {
	d.mu.Lock()
	in := api.ReviewInput{Title: d.title, Comment: d.comment, Rating: d.rating}
	d.mu.Unlock()
	in.Images = d.uploads()
	return in
}

func (d *Draft) updateInput() api.ReviewUpdate {
	d.mu.Lock()
	in := api.ReviewUpdate{
		Title:          d.title,
		Comment:        d.comment,
		Rating:         d.rating,
		ExistingImages: slices.Clone(d.existing),
	}
	d.mu.Unlock()
	in.NewImages = d.uploads()
	return in
}
