// Package ome models the subset of OME-XML metadata an image consumer
// needs: pixel geometry, dimension order, physical pixel sizes and channel
// structure. The document travels in the ImageDescription tag of the first
// TIFF directory.
package ome

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// Axes in canonical order; DimensionOrder must be a permutation of these.
const AxisNames = "XYZCT"

var ErrNotOME = errors.New("ome: document is not OME-XML")

// Document is the root OME element.
type Document struct {
	XMLName xml.Name `xml:"OME"`
	Creator string   `xml:"Creator,attr"`
	Images  []Image  `xml:"Image"`
}

// Image is one acquisition within the document.
type Image struct {
	ID     string `xml:"ID,attr"`
	Name   string `xml:"Name,attr"`
	Pixels Pixels `xml:"Pixels"`
}

// Pixels describes the pixel grid of an image.
type Pixels struct {
	ID                string  `xml:"ID,attr"`
	DimensionOrder    string  `xml:"DimensionOrder,attr"`
	Type              string  `xml:"Type,attr"`
	SizeX             int     `xml:"SizeX,attr"`
	SizeY             int     `xml:"SizeY,attr"`
	SizeZ             int     `xml:"SizeZ,attr"`
	SizeC             int     `xml:"SizeC,attr"`
	SizeT             int     `xml:"SizeT,attr"`
	PhysicalSizeX     float64 `xml:"PhysicalSizeX,attr"`
	PhysicalSizeXUnit string  `xml:"PhysicalSizeXUnit,attr"`
	PhysicalSizeY     float64 `xml:"PhysicalSizeY,attr"`
	PhysicalSizeYUnit string  `xml:"PhysicalSizeYUnit,attr"`
	Interleaved       bool    `xml:"Interleaved,attr"`

	Channels []Channel `xml:"Channel"`
}

// Channel names one acquisition channel.
type Channel struct {
	ID              string `xml:"ID,attr"`
	Name            string `xml:"Name,attr"`
	Color           int64  `xml:"Color,attr"`
	SamplesPerPixel int    `xml:"SamplesPerPixel,attr"`
}

// Parse unmarshals an OME-XML document and validates its first image.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotOME, err)
	}
	if doc.XMLName.Local != "OME" {
		return nil, ErrNotOME
	}
	if len(doc.Images) == 0 {
		return nil, fmt.Errorf("%w: no Image element", ErrNotOME)
	}
	if err := doc.Images[0].Pixels.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks size attributes and the dimension order.
func (p *Pixels) Validate() error {
	for _, s := range [...]struct {
		name string
		v    int
	}{
		{"SizeX", p.SizeX}, {"SizeY", p.SizeY}, {"SizeZ", p.SizeZ},
		{"SizeC", p.SizeC}, {"SizeT", p.SizeT},
	} {
		if s.v < 1 {
			return fmt.Errorf("ome: %s is %d, must be >= 1", s.name, s.v)
		}
	}
	if err := validateDimensionOrder(p.DimensionOrder); err != nil {
		return err
	}
	return nil
}

func validateDimensionOrder(order string) error {
	if len(order) != len(AxisNames) {
		return fmt.Errorf("ome: DimensionOrder %q must name all of %s", order, AxisNames)
	}
	for _, a := range AxisNames {
		if strings.Count(order, string(a)) != 1 {
			return fmt.Errorf("ome: DimensionOrder %q is not a permutation of %s", order, AxisNames)
		}
	}
	return nil
}

// Size returns the extent along the given axis letter (one of XYZCT).
func (p *Pixels) Size(axis byte) int {
	switch axis {
	case 'X', 'x':
		return p.SizeX
	case 'Y', 'y':
		return p.SizeY
	case 'Z', 'z':
		return p.SizeZ
	case 'C', 'c':
		return p.SizeC
	case 'T', 't':
		return p.SizeT
	}
	return 0
}

// PlaneCount returns the number of 2D planes (Z*C*T) the pixel grid holds.
func (p *Pixels) PlaneCount() int {
	return p.SizeZ * p.SizeC * p.SizeT
}
