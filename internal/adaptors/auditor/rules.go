package auditor

import (
	"path"
	"strings"

	"web_accessibility_analyzer/internal/domain/models"

	"golang.org/x/net/html"
)

const helpURLBase = "https://dequeuniversity.com/rules/axe/4.10/"

// outcome collects the nodes a rule matched, split by verdict.
type outcome struct {
	violations []models.NodeResult
	incomplete []models.NodeResult
	passes     []models.NodeResult
}

func (o *outcome) fail(n *html.Node, summary string) {
	o.violations = append(o.violations, models.NodeResult{HTML: snippet(n), FailureSummary: summary})
}

func (o *outcome) review(n *html.Node, summary string) {
	o.incomplete = append(o.incomplete, models.NodeResult{HTML: snippet(n), FailureSummary: summary})
}

func (o *outcome) pass(n *html.Node) {
	o.passes = append(o.passes, models.NodeResult{HTML: snippet(n)})
}

type rule struct {
	id          string
	impact      string
	tags        []string
	help        string
	description string
	check       func(doc *html.Node) outcome
}

func (r rule) result(nodes []models.NodeResult, impact string) models.RuleResult {
	for i := range nodes {
		nodes[i].Impact = impact
	}
	return models.RuleResult{
		ID:          r.id,
		Impact:      impact,
		Tags:        r.tags,
		Help:        r.help,
		Description: r.description,
		HelpURL:     helpURLBase + r.id,
		Nodes:       nodes,
	}
}

// defaultRules is the rule set evaluated when no browser is available.
// Rule ids and wording follow axe-core so reports look the same in both modes.
var defaultRules = []rule{
	{
		id:          "document-title",
		impact:      "serious",
		tags:        []string{"cat.text-alternatives", "wcag2a", "wcag242"},
		help:        "Documents must have <title> element to aid in navigation",
		description: "Ensures each HTML document contains a non-empty <title> element",
		check:       checkDocumentTitle,
	},
	{
		id:          "html-has-lang",
		impact:      "serious",
		tags:        []string{"cat.language", "wcag2a", "wcag311"},
		help:        "<html> element must have a lang attribute",
		description: "Ensures every HTML document has a lang attribute",
		check:       checkHTMLHasLang,
	},
	{
		id:          "image-alt",
		impact:      "critical",
		tags:        []string{"cat.text-alternatives", "wcag2a", "wcag111"},
		help:        "Images must have alternate text",
		description: "Ensures <img> elements have alternate text or a role of none or presentation",
		check:       checkImageAlt,
	},
	{
		id:          "link-name",
		impact:      "serious",
		tags:        []string{"cat.name-role-value", "wcag2a", "wcag244", "wcag412"},
		help:        "Links must have discernible text",
		description: "Ensures links have discernible text",
		check:       checkLinkName,
	},
	{
		id:          "button-name",
		impact:      "critical",
		tags:        []string{"cat.name-role-value", "wcag2a", "wcag412"},
		help:        "Buttons must have discernible text",
		description: "Ensures buttons have discernible text",
		check:       checkButtonName,
	},
	{
		id:          "label",
		impact:      "critical",
		tags:        []string{"cat.forms", "wcag2a", "wcag412", "wcag131"},
		help:        "Form elements must have labels",
		description: "Ensures every form element has a label",
		check:       checkLabel,
	},
	{
		id:          "page-has-heading-one",
		impact:      "moderate",
		tags:        []string{"cat.semantics", "best-practice"},
		help:        "Page should contain a level-one heading",
		description: "Ensure that the page, or at least one of its frames contains a level-one heading",
		check:       checkHeadingOne,
	},
}

func checkDocumentTitle(doc *html.Node) outcome {
	var o outcome
	title := findFirst(doc, "title")
	switch {
	case title == nil:
		if root := findFirst(doc, "html"); root != nil {
			o.fail(root, "Fix any of the following:\n  Document does not have a non-empty <title> element")
		}
	case textContent(title) == "":
		o.fail(title, "Fix any of the following:\n  Document does not have a non-empty <title> element")
	default:
		o.pass(title)
	}
	return o
}

func checkHTMLHasLang(doc *html.Node) outcome {
	var o outcome
	root := findFirst(doc, "html")
	if root == nil {
		return o
	}
	if attrValue(root, "lang") == "" && attrValue(root, "xml:lang") == "" {
		o.fail(root, "Fix any of the following:\n  The <html> element does not have a lang attribute")
		return o
	}
	o.pass(root)
	return o
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true, ".bmp": true,
}

func checkImageAlt(doc *html.Node) outcome {
	var o outcome
	for _, img := range findAll(doc, "img") {
		role := strings.ToLower(attrValue(img, "role"))
		alt, hasAlt := attr(img, "alt")
		switch {
		case role == "none" || role == "presentation":
			o.pass(img)
		case attrValue(img, "aria-label") != "" || attrValue(img, "aria-labelledby") != "":
			o.pass(img)
		case !hasAlt:
			o.fail(img, "Fix any of the following:\n  Element does not have an alt attribute\n  Element has no title attribute or the title attribute is empty")
		case imageExtensions[strings.ToLower(path.Ext(strings.TrimSpace(alt)))]:
			o.review(img, "Review:\n  Alternative text looks like a file name")
		default:
			o.pass(img)
		}
	}
	return o
}

func checkLinkName(doc *html.Node) outcome {
	var o outcome
	for _, a := range findAll(doc, "a") {
		if _, ok := attr(a, "href"); !ok {
			continue
		}
		if strings.EqualFold(attrValue(a, "aria-hidden"), "true") {
			continue
		}
		if accessibleName(a) == "" {
			o.fail(a, "Fix all of the following:\n  Element is in tab order and does not have accessible text")
			continue
		}
		o.pass(a)
	}
	return o
}

func checkButtonName(doc *html.Node) outcome {
	var o outcome
	for _, n := range findAll(doc, "button", "input") {
		if isElement(n, "input") {
			switch strings.ToLower(attrValue(n, "type")) {
			case "submit", "reset":
				// browsers supply a default label
				o.pass(n)
				continue
			case "button":
				if attrValue(n, "value") != "" || accessibleName(n) != "" {
					o.pass(n)
				} else {
					o.fail(n, "Fix any of the following:\n  Element has no value attribute or the value attribute is empty")
				}
				continue
			default:
				continue
			}
		}
		if accessibleName(n) == "" {
			o.fail(n, "Fix any of the following:\n  Element does not have inner text that is visible to screen readers")
			continue
		}
		o.pass(n)
	}
	return o
}

var unlabelledInputTypes = map[string]bool{
	"hidden": true, "submit": true, "reset": true, "button": true, "image": true,
}

func checkLabel(doc *html.Node) outcome {
	var o outcome

	labelled := map[string]bool{}
	for _, l := range findAll(doc, "label") {
		if id := attrValue(l, "for"); id != "" {
			labelled[id] = true
		}
	}

	for _, n := range findAll(doc, "input", "select", "textarea") {
		if isElement(n, "input") && unlabelledInputTypes[strings.ToLower(attrValue(n, "type"))] {
			continue
		}
		id := attrValue(n, "id")
		switch {
		case id != "" && labelled[id]:
			o.pass(n)
		case hasAncestor(n, "label"):
			o.pass(n)
		case attrValue(n, "aria-label") != "" || attrValue(n, "aria-labelledby") != "":
			o.pass(n)
		case attrValue(n, "title") != "":
			o.pass(n)
		case attrValue(n, "placeholder") != "":
			o.review(n, "Review:\n  Element only has a placeholder, which disappears while typing")
		default:
			o.fail(n, "Fix any of the following:\n  Form element does not have an implicit (wrapped) <label>\n  Form element does not have an explicit <label>")
		}
	}
	return o
}

func checkHeadingOne(doc *html.Node) outcome {
	var o outcome
	if h1 := findFirst(doc, "h1"); h1 != nil {
		o.pass(h1)
		return o
	}
	if root := findFirst(doc, "html"); root != nil {
		o.fail(root, "Fix all of the following:\n  Page must have a level-one heading")
	}
	return o
}
