/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package shop

import (
	"context"
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFeed_LatestProducts(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(func() time.Time { return testStartTime })
	populateFixture(t, repo)
	require.NoError(t, repo.SetProductsArchived(ctx, []uint{9}, true))

	rss, err := NewFeed(repo, "http://shop.local/").LatestProducts(ctx)
	require.NoError(t, err)
	require.Equal(t, "2.0", rss.Version)
	require.Equal(t, "Products (latest)", rss.Channel.Title)
	require.Len(t, rss.Channel.Items, LatestProductsFeedSize)
	require.Equal(t, RSSItem{
		Title:       "Headphones",
		Link:        "http://shop.local/products/8",
		Description: "Headphones description",
		GUID:        "http://shop.local/products/8",
		PubDate:     "Sat, 01 Mar 2025 12:00:00 +0000",
	}, rss.Channel.Items[0])
	require.Equal(t, "Tablet", rss.Channel.Items[4].Title)

	data, err := rss.Encode()
	require.NoError(t, err)
	require.Contains(t, string(data), xml.Header)
	var decoded RSS
	require.NoError(t, xml.Unmarshal(data, &decoded))
	require.Equal(t, rss.Channel.Items, decoded.Channel.Items)
}

func TestFeed_Empty(t *testing.T) {
	rss, err := NewFeed(NewMemoryRepository(nil), "").LatestProducts(context.Background())
	require.NoError(t, err)
	require.Empty(t, rss.Channel.Items)
	require.Empty(t, rss.Channel.LastBuildDate)
}
