package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Ingredient is one parsed ingredient line.
type Ingredient struct {
	Raw     string `json:"raw"`
	Amount  string `json:"amount,omitempty"`
	Unit    string `json:"unit,omitempty"`
	Item    string `json:"item"`
	Note    string `json:"note,omitempty"`
	Section string `json:"section,omitempty"`
}

// Parsed reports whether a quantity was recognised.
func (i Ingredient) Parsed() bool {
	return i.Amount != "" && i.Item != ""
}

// IngredientStats counts parsed and unparsed ingredient lines.
type IngredientStats struct {
	Total    int `json:"total"`
	Parsed   int `json:"parsed"`
	Unparsed int `json:"unparsed"`
}

func (s *IngredientStats) Add(o IngredientStats) {
	s.Total += o.Total
	s.Parsed += o.Parsed
	s.Unparsed += o.Unparsed
}

var units = []string{
	"fluid ounces", "fluid ounce", "tablespoons", "tablespoon", "teaspoons", "teaspoon",
	"gallons", "gallon", "quarts", "quart", "pints", "pint", "cups", "cup",
	"tbsp", "tbs", "tsp", "fl oz", "fl. oz", "gal", "qt", "pt", "tb", "ts", "c",
	"milliliters", "milliliter", "liters", "liter", "litres", "litre", "ml", "l",
	"ounces", "ounce", "pounds", "pound", "lbs", "lb", "oz",
	"kilograms", "kilogram", "milligrams", "milligram", "grams", "gram", "kg", "mg", "g",
	"packages", "package", "handfuls", "handful", "bunches", "bunch", "pinches", "pinch",
	"slices", "slice", "sprigs", "sprig", "stalks", "stalk", "pieces", "piece",
	"cloves", "clove", "dashes", "dash", "sticks", "stick", "cans", "can", "jars", "jar",
	"heads", "head", "pkg", "extra-large", "large", "medium", "small",
}

var canonicalUnits = map[string]string{
	"teaspoon": "tsp", "teaspoons": "tsp", "ts": "tsp",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbs": "tbsp", "tb": "tbsp",
	"cups": "cup", "c": "cup",
	"pints": "pint", "pt": "pint", "quarts": "quart", "qt": "quart",
	"gallons": "gallon", "gal": "gallon",
	"fluid ounce": "fl oz", "fluid ounces": "fl oz", "fl. oz": "fl oz",
	"milliliter": "ml", "milliliters": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"ounce": "oz", "ounces": "oz", "pound": "lb", "pounds": "lb", "lbs": "lb",
	"gram": "g", "grams": "g", "kilogram": "kg", "kilograms": "kg",
	"milligram": "mg", "milligrams": "mg",
}

const (
	amountPattern = `(?:\d+\s+\d+/\d+|\d+/\d+|\d+(?:[.,]\d+)?\s*[¼½¾⅓⅔⅛⅜⅝⅞]?|[¼½¾⅓⅔⅛⅜⅝⅞])`
	rangePattern  = amountPattern + `(?:\s*(?:-|–|to)\s*` + amountPattern + `)?`
)

var (
	ingredientRe = buildIngredientRe()
	listMarkerRe = regexp.MustCompile(`^(?:[-*•▢□▪]+|\d+[.)]\s)\s*`)
)

func buildIngredientRe() *regexp.Regexp {
	sorted := append([]string(nil), units...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, u := range sorted {
		quoted[i] = regexp.QuoteMeta(u)
	}
	return regexp.MustCompile(`(?i)^(` + rangePattern + `)\s*(?:(` + strings.Join(quoted, "|") + `)\.?(?:\s+|$))?(.*)$`)
}

// ParseIngredient splits a line into amount, unit, item and note. Lines
// without a leading quantity keep the whole text as the item.
func ParseIngredient(line string) Ingredient {
	raw := strings.TrimSpace(line)
	ing := Ingredient{Raw: raw, Item: raw}

	m := ingredientRe.FindStringSubmatch(raw)
	if m == nil {
		ing.Item, ing.Note = splitNote(raw)
		return ing
	}
	ing.Amount = strings.Join(strings.Fields(m[1]), " ")
	if m[2] != "" {
		unit := strings.ToLower(m[2])
		if c, ok := canonicalUnits[unit]; ok {
			unit = c
		}
		ing.Unit = unit
	}
	ing.Item, ing.Note = splitNote(strings.TrimSpace(m[3]))
	if ing.Item == "" && ing.Unit != "" {
		// "2 large" with nothing after: the word was the item, not a unit.
		ing.Item, ing.Unit = m[2], ""
	}
	return ing
}

func splitNote(s string) (item, note string) {
	if open := strings.Index(s, "("); open > 0 {
		if closeIdx := strings.LastIndex(s, ")"); closeIdx > open {
			note = strings.TrimSpace(s[open+1 : closeIdx])
			s = strings.TrimSpace(s[:open] + s[closeIdx+1:])
		}
	}
	if comma := strings.Index(s, ","); comma > 0 {
		rest := strings.TrimSpace(s[comma+1:])
		s = strings.TrimSpace(s[:comma])
		if note == "" {
			note = rest
		} else if rest != "" {
			note = note + ", " + rest
		}
	}
	return s, note
}

// sectionHeader recognises lines such as "For the sauce:" or "Filling:".
func sectionHeader(line string) (string, bool) {
	name, ok := strings.CutSuffix(strings.TrimSpace(line), ":")
	if !ok {
		return "", false
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "0123456789") || len(name) > 50 {
		return "", false
	}
	return name, true
}

// ParseIngredients parses a newline separated ingredient blob. Section
// headers are attached to the lines that follow and are not counted.
func ParseIngredients(blob string) ([]Ingredient, IngredientStats) {
	var out []Ingredient
	var stats IngredientStats
	section := ""
	for _, line := range strings.Split(blob, "\n") {
		line = strings.TrimSpace(listMarkerRe.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		if name, ok := sectionHeader(line); ok {
			section = name
			continue
		}
		ing := ParseIngredient(line)
		ing.Section = section
		out = append(out, ing)
		stats.Total++
		if ing.Parsed() {
			stats.Parsed++
		} else {
			stats.Unparsed++
		}
	}
	return out, stats
}
