package entity

// Categories is the fixed candidate label set handed to the zero-shot
// classifier. The classifier's top-ranked label, which is always drawn from
// this list, becomes the article's category.
var Categories = []string{
	"Politics",
	"Business",
	"Science & Technology",
	"Health & Wellness",
	"Sports",
	"Travel & Leisure",
	"Music & Film",
	"Pop Culture & Celebrities",
	"Education",
}

var categorySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		set[c] = struct{}{}
	}
	return set
}()

// IsCategory reports whether s is one of the known topic labels.
func IsCategory(s string) bool {
	_, ok := categorySet[s]
	return ok
}
