package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stwalsh4118/estatedesk/internal/models"
)

// ContentType is the media type the feed is served with.
const ContentType = "application/xml; charset=utf-8"

// Channel describes the publisher of the feed.
type Channel struct {
	Title       string
	Description string
	// BaseURL is the public site; listing links are BaseURL/properties/<code>.
	BaseURL string
}

type document struct {
	XMLName     xml.Name  `xml:"listings"`
	Generated   string    `xml:"generated,attr"`
	Count       int       `xml:"count,attr"`
	Title       string    `xml:"title"`
	Description string    `xml:"description,omitempty"`
	Link        string    `xml:"link,omitempty"`
	Properties  []listing `xml:"property"`
}

type listing struct {
	Code        string   `xml:"code,attr"`
	Title       string   `xml:"title"`
	Description string   `xml:"description,omitempty"`
	Price       price    `xml:"price"`
	City        string   `xml:"location>city"`
	Region      string   `xml:"location>region"`
	Bedrooms    *int     `xml:"bedrooms,omitempty"`
	Bathrooms   *int     `xml:"bathrooms,omitempty"`
	AreaSqm     *float64 `xml:"area_sqm,omitempty"`
	Link        string   `xml:"link,omitempty"`
	Updated     string   `xml:"updated"`
}

type price struct {
	Currency string `xml:"currency,attr"`
	Amount   string `xml:",chardata"`
}

// Render writes the listing feed for properties. Only published properties
// are included; order is preserved.
func Render(w io.Writer, ch Channel, properties []models.Property, generated time.Time) error {
	base := strings.TrimRight(ch.BaseURL, "/")

	doc := document{
		Generated:   generated.UTC().Format(time.RFC3339),
		Title:       ch.Title,
		Description: ch.Description,
		Link:        base,
		Properties:  make([]listing, 0, len(properties)),
	}

	for _, p := range properties {
		if p.Status != models.PropertyStatusPublished {
			continue
		}
		item := listing{
			Code:      p.Code,
			Title:     p.Title,
			Price:     price{Currency: p.Currency, Amount: strconv.FormatFloat(p.Price, 'f', 2, 64)},
			City:      p.City,
			Region:    p.Region,
			Bedrooms:  p.Bedrooms,
			Bathrooms: p.Bathrooms,
			AreaSqm:   p.AreaSqm,
			Updated:   p.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if p.Description != nil {
			item.Description = *p.Description
		}
		if base != "" {
			item.Link = base + "/properties/" + url.PathEscape(p.Code)
		}
		doc.Properties = append(doc.Properties, item)
	}
	doc.Count = len(doc.Properties)

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write feed header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode feed: %w", err)
	}
	return enc.Close()
}
