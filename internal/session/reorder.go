package session

import "movie-discovery/internal/models"

// Reorder demotes the first movie with dislikedID to the back of the bucket.
// Membership never changes; a miss returns the bucket as is. The input is
// not modified.
func Reorder(b models.Bucket, dislikedID int) models.Bucket {
	idx := b.IndexOf(dislikedID)
	if idx < 0 {
		return b
	}

	movies := make([]models.BucketMovie, 0, len(b.Movies))
	movies = append(movies, b.Movies[:idx]...)
	movies = append(movies, b.Movies[idx+1:]...)
	movies = append(movies, b.Movies[idx])

	return models.Bucket{PlatformName: b.PlatformName, Movies: movies}
}
