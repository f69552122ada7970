package models

// BucketMovie is one entry of a recommendation bucket.
type BucketMovie struct {
	ID        int    `json:"movie_id"`
	Title     string `json:"original_title"`
	PosterURL string `json:"poster_path"`
}

// Bucket is an ordered group of recommended movies for one platform grouping.
// Order is what the UI renders left to right.
type Bucket struct {
	PlatformName string        `json:"name"`
	Movies       []BucketMovie `json:"movies"`
}

// Contains reports whether the bucket holds a movie with the given id.
func (b Bucket) Contains(movieID int) bool {
	return b.IndexOf(movieID) >= 0
}

// IndexOf returns the position of the first movie with the given id, or -1.
func (b Bucket) IndexOf(movieID int) int {
	for i, m := range b.Movies {
		if m.ID == movieID {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing array with b.
func (b Bucket) Clone() Bucket {
	movies := make([]BucketMovie, len(b.Movies))
	copy(movies, b.Movies)
	return Bucket{PlatformName: b.PlatformName, Movies: movies}
}

// RecommendationResult is the response of the recommendations endpoint.
type RecommendationResult struct {
	Dominant Bucket `json:"dominant_platform"`
	Other    Bucket `json:"other_platforms"`
}

// Clone returns a deep copy of the result.
func (r RecommendationResult) Clone() RecommendationResult {
	return RecommendationResult{Dominant: r.Dominant.Clone(), Other: r.Other.Clone()}
}

const (
	// NoDominantPlatform names the dominant bucket when no recommended movie has a provider.
	NoDominantPlatform = "Not Detected"
	// OtherPlatformsName names the bucket holding everything outside the dominant platform.
	OtherPlatformsName = "Other Platforms"
)

// Candidate is a similar movie together with the platforms it streams on.
type Candidate struct {
	BucketMovie
	Providers []Provider
	Score     float64
}

// Neighbor is one precomputed similarity edge.
type Neighbor struct {
	MovieID int     `json:"movie_id"`
	Score   float64 `json:"score"`
}
