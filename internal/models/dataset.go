package models

// Dataset pairs a remote sea-ice extent CSV with the local file it is
// normalized into.
type Dataset struct {
	Hemisphere string
	URL        string
	FileName   string
}

type ExtentRow struct {
	Year   int
	Month  int
	Day    int
	Extent float64
}
