package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"movie-discovery/internal/models"
)

func bucket(ids ...int) models.Bucket {
	b := models.Bucket{PlatformName: "Netflix", Movies: []models.BucketMovie{}}
	for _, id := range ids {
		b.Movies = append(b.Movies, models.BucketMovie{ID: id, Title: string(rune('A' + id - 1))})
	}
	return b
}

func ids(b models.Bucket) []int {
	out := make([]int, 0, len(b.Movies))
	for _, m := range b.Movies {
		out = append(out, m.ID)
	}
	return out
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name     string
		movies   []int
		disliked int
		want     []int
	}{
		{name: "first moves to back", movies: []int{1, 2}, disliked: 1, want: []int{2, 1}},
		{name: "middle keeps relative order of the rest", movies: []int{1, 2, 3, 4}, disliked: 2, want: []int{1, 3, 4, 2}},
		{name: "last stays last", movies: []int{1, 2, 3}, disliked: 3, want: []int{1, 2, 3}},
		{name: "missing id is a no-op", movies: []int{1, 2, 3}, disliked: 9, want: []int{1, 2, 3}},
		{name: "single entry", movies: []int{5}, disliked: 5, want: []int{5}},
		{name: "empty bucket", movies: nil, disliked: 1, want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reorder(bucket(tt.movies...), tt.disliked)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, "Netflix", got.PlatformName)
		})
	}
}

func TestReorderDoesNotMutateInput(t *testing.T) {
	in := bucket(1, 2, 3)
	_ = Reorder(in, 1)
	assert.Equal(t, []int{1, 2, 3}, ids(in))
}

func TestReorderIsIdempotentOnceLast(t *testing.T) {
	b := Reorder(bucket(1, 2, 3), 2)
	assert.Equal(t, []int{1, 3, 2}, ids(b))

	again := Reorder(b, 2)
	assert.Equal(t, ids(b), ids(again))
}

func TestReorderIsPermutation(t *testing.T) {
	b := bucket(1, 2, 3, 4, 5)
	for _, id := range []int{3, 1, 5, 3, 2, 4} {
		b = Reorder(b, id)
		assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, ids(b))
	}
}
