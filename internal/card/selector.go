package card

// TemplateID names one of the fixed card shapes.
type TemplateID string

const (
	Profile TemplateID = "profile"
	Product TemplateID = "product"
	Landing TemplateID = "landing"
	Article TemplateID = "article"
	Service TemplateID = "service"
)

// Templates lists every template in display order.
var Templates = []TemplateID{Profile, Product, Landing, Article, Service}

// Select maps a blueprint template type onto a template. Matching is exact;
// anything else, including the empty string, selects Profile, which
// degrades best when only a title and an image are known.
func Select(templateType string) TemplateID {
	switch TemplateID(templateType) {
	case Profile, Product, Landing, Article, Service:
		return TemplateID(templateType)
	default:
		return Profile
	}
}
