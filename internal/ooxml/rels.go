package ooxml

import (
	"encoding/xml"
	"fmt"

	"github.com/dgallion1/docedit/internal/revision"
)

const (
	relTypeHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	relTypeImage     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

// Relationship is one entry of a part relationship file.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// Relationships is the parsed word/_rels/document.xml.rels part.
type Relationships struct {
	XMLName xml.Name       `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Items   []Relationship `xml:"Relationship"`
}

// ParseRelationships decodes a relationship part. A nil input yields an
// empty set, which is what a document without a rels part gets.
func ParseRelationships(data []byte) (*Relationships, error) {
	rels := &Relationships{}
	if len(data) == 0 {
		return rels, nil
	}
	if err := xml.Unmarshal(data, rels); err != nil {
		return nil, fmt.Errorf("parse relationships: %w", err)
	}
	return rels, nil
}

// Encode serializes the relationship part.
func (r *Relationships) Encode() ([]byte, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode relationships: %w", err)
	}
	return append([]byte(xmlHeader), body...), nil
}

// Lookup returns the relationship with the given id.
func (r *Relationships) Lookup(id string) (Relationship, bool) {
	for _, rel := range r.Items {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

// Reserve feeds every existing relationship id into the allocator so new
// ids never collide.
func (r *Relationships) Reserve(rev *revision.Context) {
	for _, rel := range r.Items {
		rev.ReserveRelID(rel.ID)
	}
}

// AddHyperlink registers an external hyperlink target and returns its id.
// An existing relationship for the same URL is reused.
func (r *Relationships) AddHyperlink(rev *revision.Context, url string) string {
	for _, rel := range r.Items {
		if rel.Type == relTypeHyperlink && rel.Target == url {
			return rel.ID
		}
	}
	id := rev.NextRelID()
	r.Items = append(r.Items, Relationship{
		ID:         id,
		Type:       relTypeHyperlink,
		Target:     url,
		TargetMode: "External",
	})
	return id
}

// AddImage registers an image part (a target relative to word/) and returns
// the relationship id for r:embed.
func (r *Relationships) AddImage(rev *revision.Context, target string) string {
	id := rev.NextRelID()
	r.Items = append(r.Items, Relationship{
		ID:     id,
		Type:   relTypeImage,
		Target: target,
	})
	return id
}
