package layout

// TagCategory classifies element tags for box generation. The set is closed;
// every tag maps to exactly one category and the builder switches over all
// of them.
type TagCategory int

const (
	// CategoryNonVisual tags contribute no box and their subtrees are not
	// visited for box generation.
	CategoryNonVisual TagCategory = iota
	CategoryImage
	CategoryMedia
	CategoryInline
	CategoryBlock
)

// Categorize maps a tag name to its category. Unknown tags lay out as
// blocks, matching how unknown elements default in the flow.
func Categorize(tag string) TagCategory {
	switch tag {
	case "script", "style", "head", "meta", "link", "title", "base",
		"noscript", "template":
		return CategoryNonVisual
	case "img":
		return CategoryImage
	case "video", "audio", "canvas", "embed", "object", "iframe":
		return CategoryMedia
	case "a", "span", "b", "strong", "i", "em", "u", "small", "sub", "sup",
		"code", "label", "abbr", "cite", "q", "mark", "time", "br":
		return CategoryInline
	default:
		return CategoryBlock
	}
}

// Kind is the box variant, derived from tag category and computed style.
type Kind int

const (
	KindBlock Kind = iota
	KindInline
	KindImage
	KindMedia
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindInline:
		return "inline"
	case KindImage:
		return "image"
	case KindMedia:
		return "media"
	}
	return "other"
}
