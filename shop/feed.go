/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package shop

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// LatestProductsFeedSize is the number of products in the feed.
const LatestProductsFeedSize = 5

// RSS is an RSS 2.0 document.
type RSS struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel RSSChannel `xml:"channel"`
}

// RSSChannel is the channel of an RSS document.
type RSSChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []RSSItem `xml:"item"`
}

// RSSItem is an item of an RSS channel.
type RSSItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
}

// Feed builds the feed of the latest products.
type Feed struct {
	repo    Repository
	baseURL string
}

// NewFeed creates a new Feed. Item links are built relative to baseURL.
func NewFeed(repo Repository, baseURL string) *Feed {
	return &Feed{repo: repo, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// LatestProducts returns the feed of the newest non-archived products.
func (f *Feed) LatestProducts(ctx context.Context) (*RSS, error) {
	products, err := f.repo.LatestProducts(ctx, LatestProductsFeedSize)
	if err != nil {
		return nil, fmt.Errorf("get latest products: %w", err)
	}
	rss := &RSS{
		Version: "2.0",
		Channel: RSSChannel{
			Title:       "Products (latest)",
			Link:        f.baseURL + "/",
			Description: "Updates on products",
			Items:       make([]RSSItem, 0, len(products)),
		},
	}
	for i := range products {
		link := fmt.Sprintf("%s/products/%d", f.baseURL, products[i].ID)
		rss.Channel.Items = append(rss.Channel.Items, RSSItem{
			Title:       products[i].Name,
			Link:        link,
			Description: products[i].Description,
			GUID:        link,
			PubDate:     products[i].CreatedAt.UTC().Format(time.RFC1123Z),
		})
	}
	if len(products) != 0 {
		rss.Channel.LastBuildDate = products[0].CreatedAt.UTC().Format(time.RFC1123Z)
	}
	return rss, nil
}

// Encode writes the document with the XML header.
func (rss *RSS) Encode() ([]byte, error) {
	data, err := xml.MarshalIndent(rss, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}
