package slug_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/pkg/slug"
)

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Science & Technology", "science-and-technology"},
		{"Pop Culture & Celebrities", "pop-culture-and-celebrities"},
		{"Sports", "sports"},
		{"Health & Wellness", "health-and-wellness"},
		{"  Music  &  Film  ", "music-and-film"},
		{"", ""},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.Make(tt.in))
		})
	}
}

// Re-slugifying a clean slug must be a no-op.
func TestMakeIdempotentOnCleanSlugs(t *testing.T) {
	for _, label := range entity.Categories {
		clean := slug.Make(label)
		assert.Equal(t, clean, slug.Make(clean), "label %q", label)
	}
}

// Every category label slugs to the documented shape.
func TestMakeShape(t *testing.T) {
	shape := regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	for _, label := range entity.Categories {
		got := slug.Make(label)
		assert.Regexp(t, shape, got, "label %q", label)
	}
}
