package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/chartdata/internal/models"
	"github.com/xhad/chartdata/pkg/store"
)

func getTestConfig(t *testing.T) store.StoreConfig {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set")
	}
	return store.StoreConfig{
		ConnString:   connString,
		ExtentTable:  "test_seaice_extent",
		BookTable:    "test_book_sentences",
		HistogramDim: 8,
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	s, err := store.NewWithConfig(ctx, getTestConfig(t))
	require.NoError(t, err)
	defer s.Close()

	err = s.StoreExtent(ctx, "south", []models.ExtentRow{
		{Year: 1978, Month: 10, Day: 26, Extent: 10.231},
		{Year: 1978, Month: 10, Day: 28, Extent: 10.420},
	})
	require.NoError(t, err)

	records := []models.SentenceRecord{
		{FileName: "short.txt", Sentences: []int{3, 3, 4, 3}},
		{FileName: "also-short.txt", Sentences: []int{3, 4, 3}},
		{FileName: "long.txt", Sentences: []int{30, 42, 27}},
	}
	require.NoError(t, s.StoreSentences(ctx, records))

	matches, err := s.Similar(ctx, "short.txt", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "also-short.txt", matches[0].FileName)
	assert.Equal(t, "long.txt", matches[1].FileName)
	assert.Less(t, matches[0].Distance, matches[1].Distance)
}
