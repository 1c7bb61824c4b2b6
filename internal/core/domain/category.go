package domain

import "strings"

// Category is a taxonomy label.
type Category string

// Standard categories.
const (
	CategoryTechnology    Category = "Technology"
	CategoryBusiness      Category = "Business"
	CategoryHealth        Category = "Health"
	CategoryLifestyle     Category = "Lifestyle"
	CategoryEntertainment Category = "Entertainment"
	CategorySports        Category = "Sports"
	CategoryScience       Category = "Science"
	CategoryEducation     Category = "Education"
	CategoryTravel        Category = "Travel"
	CategoryFood          Category = "Food"
	CategoryFashion       Category = "Fashion"
	CategoryHomeGarden    Category = "Home & Garden"
	CategoryFinance       Category = "Finance"
	CategoryAutomotive    Category = "Automotive"
	CategoryGeneral       Category = "General"

	// CategoryUnclassified is assigned when no confident label exists.
	CategoryUnclassified Category = "unclassified"
)

// StandardCategories returns the default taxonomy in display order.
func StandardCategories() []Category {
	return []Category{
		CategoryTechnology, CategoryBusiness, CategoryHealth, CategoryLifestyle,
		CategoryEntertainment, CategorySports, CategoryScience, CategoryEducation,
		CategoryTravel, CategoryFood, CategoryFashion, CategoryHomeGarden,
		CategoryFinance, CategoryAutomotive, CategoryGeneral,
	}
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// Taxonomy is a closed set of categories. Unclassified is always implied.
type Taxonomy struct {
	categories []Category
	index      map[string]Category
}

// NewTaxonomy builds a taxonomy from the standard categories plus custom ones.
// Custom labels that repeat a standard one (case-insensitive) are ignored.
func NewTaxonomy(custom ...string) Taxonomy {
	t := Taxonomy{index: make(map[string]Category)}
	for _, c := range StandardCategories() {
		t.add(c)
	}
	for _, c := range custom {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		t.add(Category(c))
	}
	return t
}

// DefaultTaxonomy returns the standard taxonomy.
func DefaultTaxonomy() Taxonomy {
	return NewTaxonomy()
}

func (t *Taxonomy) add(c Category) {
	key := categoryKey(string(c))
	if key == categoryKey(string(CategoryUnclassified)) {
		return
	}
	if _, ok := t.index[key]; ok {
		return
	}
	t.index[key] = c
	t.categories = append(t.categories, c)
}

// Categories returns the labels in the taxonomy, excluding unclassified.
func (t Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	copy(out, t.categories)
	return out
}

// Names returns the labels as strings.
func (t Taxonomy) Names() []string {
	out := make([]string, len(t.categories))
	for i, c := range t.categories {
		out[i] = string(c)
	}
	return out
}

// Lookup resolves a free-form label to a taxonomy category, case-insensitively.
func (t Taxonomy) Lookup(label string) (Category, bool) {
	c, ok := t.index[categoryKey(label)]
	return c, ok
}

// Len returns the number of categories, excluding unclassified.
func (t Taxonomy) Len() int {
	return len(t.categories)
}

func categoryKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " and ", " & ")
	return strings.Join(strings.Fields(s), " ")
}
