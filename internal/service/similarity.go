package service

import (
	"sort"
	"strings"

	"movie-discovery/internal/models"
)

const (
	genreWeight    = 0.4
	keywordWeight  = 0.3
	directorWeight = 0.15
	actorWeight    = 0.15

	// neighborLimit is how many neighbours are stored per movie.
	neighborLimit = 30
)

type features struct {
	id        int
	genres    []string
	keywords  []string
	directors []string
	actors    []string
}

func newFeatures(m models.Movie) features {
	return features{
		id:        m.ID,
		genres:    normalize(m.Genres),
		keywords:  normalize(m.Keywords),
		directors: normalize(m.Directors),
		actors:    normalize(m.MainActors),
	}
}

func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// itemSimilarity is the weighted Jaccard overlap of two movies' attributes.
func itemSimilarity(a, b features) float64 {
	var score float64
	score += genreWeight * jaccardSimilarity(a.genres, b.genres)
	score += keywordWeight * jaccardSimilarity(a.keywords, b.keywords)
	score += directorWeight * jaccardSimilarity(a.directors, b.directors)
	score += actorWeight * jaccardSimilarity(a.actors, b.actors)
	return score
}

// jaccardSimilarity computes Jaccard similarity between two sets.
func jaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}

	intersection := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// nearestNeighbors returns, for every movie, its k most similar other movies
// with a positive score, best first. Equal scores order by movie id.
func nearestNeighbors(movies []models.Movie, k int) map[int][]models.Neighbor {
	feats := make([]features, len(movies))
	for i, m := range movies {
		feats[i] = newFeatures(m)
	}

	out := make(map[int][]models.Neighbor, len(movies))
	for i, a := range feats {
		var neighbors []models.Neighbor
		for j, b := range feats {
			if i == j || a.id == b.id {
				continue
			}
			if score := itemSimilarity(a, b); score > 0 {
				neighbors = append(neighbors, models.Neighbor{MovieID: b.id, Score: score})
			}
		}

		sort.Slice(neighbors, func(x, y int) bool {
			if neighbors[x].Score != neighbors[y].Score {
				return neighbors[x].Score > neighbors[y].Score
			}
			return neighbors[x].MovieID < neighbors[y].MovieID
		})
		if len(neighbors) > k {
			neighbors = neighbors[:k]
		}
		out[a.id] = neighbors
	}
	return out
}
