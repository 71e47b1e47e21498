package extract

import (
	"strings"

	"golang.org/x/net/html"
)

var instructionClasses = []string{
	"e-instructions", "instructions", "recipe-instructions", "jetpack-recipe-directions", "recipe-directions",
}

func fromMicrodata(doc *html.Node, sourceURL string) (*RawRecipe, error) {
	roots := findAll(doc, func(n *html.Node) bool {
		typ, _ := nodeAttr(n, "itemtype")
		return typ == "http://schema.org/Recipe" || typ == "https://schema.org/Recipe"
	})
	if len(roots) == 0 {
		return nil, ErrNoRecipe
	}
	root := roots[0]

	title := propText(root, "name")
	if title == "" {
		return nil, missingField("name")
	}

	var ingredients []string
	for _, n := range findAll(root, hasItemprop("recipeIngredient", "ingredients")) {
		if s := textContent(n); s != "" {
			ingredients = append(ingredients, s)
		}
	}
	if len(ingredients) == 0 {
		return nil, missingField("recipeIngredient (empty)")
	}

	instructions := microdataInstructions(root)
	if instructions == "" {
		return nil, missingField("recipeInstructions (empty)")
	}

	return &RawRecipe{
		Title:        title,
		Description:  propText(root, "description"),
		Ingredients:  strings.Join(ingredients, "\n"),
		Instructions: instructions,
		ImageURLs:    microdataImages(root),
		SourceURL:    sourceURL,
		SourceName:   SourceName(sourceURL),
	}, nil
}

func hasItemprop(names ...string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		prop, ok := nodeAttr(n, "itemprop")
		if !ok {
			return false
		}
		for _, p := range strings.Fields(prop) {
			for _, name := range names {
				if p == name {
					return true
				}
			}
		}
		return false
	}
}

// propText prefers a content attribute over the element text.
func propText(root *html.Node, prop string) string {
	nodes := findAll(root, hasItemprop(prop))
	if len(nodes) == 0 {
		return ""
	}
	if content, ok := nodeAttr(nodes[0], "content"); ok {
		return strings.TrimSpace(content)
	}
	return textContent(nodes[0])
}

func microdataInstructions(root *html.Node) string {
	isStep := func(n *html.Node) bool {
		if hasItemprop("recipeInstructions", "instructions")(n) {
			return true
		}
		typ, _ := nodeAttr(n, "itemtype")
		return strings.Contains(typ, "HowToStep")
	}
	var steps []string
	for _, n := range findAll(root, isStep) {
		text := ""
		if inner := findAll(n, hasItemprop("text")); len(inner) > 0 {
			text = textContent(inner[0])
		} else {
			text = textContent(n)
		}
		if text != "" {
			steps = append(steps, text)
		}
	}
	if len(steps) > 0 {
		return strings.Join(steps, "\n\n")
	}

	hasClass := func(n *html.Node) bool {
		class, _ := nodeAttr(n, "class")
		for _, c := range strings.Fields(class) {
			for _, want := range instructionClasses {
				if c == want {
					return true
				}
			}
		}
		return false
	}
	for _, n := range findAll(root, hasClass) {
		if text := textContent(n); text != "" {
			steps = append(steps, text)
		}
	}
	return strings.Join(steps, "\n\n")
}

func microdataImages(root *html.Node) []string {
	urls := []string{}
	for _, n := range findAll(root, hasItemprop("image")) {
		for _, key := range []string{"src", "href", "content"} {
			if v, ok := nodeAttr(n, key); ok && v != "" {
				urls = append(urls, v)
				break
			}
		}
	}
	return urls
}
