// Package hierarchy assembles the flat product catalog and the loosely-linked
// subjects, intents, and articles into a single navigable tree. Build is pure
// and never fails: dangling references degrade to best-effort placement so the
// tree always renders for operators, and everything that could not be placed
// normally is reported instead of silently dropped.
package hierarchy

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Level identifies the depth of a node in the tree.
type Level string

const (
	LevelProduct    Level = "product"
	LevelSubproduct Level = "subproduct"
	LevelSubject    Level = "subject"
	LevelIntent     Level = "intent"
)

const pathSeparator = " > "

// UnclassifiedName is the synthetic product-level bucket for articles with no
// usable product linkage at all.
const UnclassifiedName = "Unclassified"

// Product is one catalog row: a product/subproduct combination. A row with no
// subproduct is the generic variant for its product name.
type Product struct {
	ID             int64
	ProductName    string
	SubproductName string
}

// Subject belongs to exactly one catalog row.
type Subject struct {
	ID               int64
	Name             string
	ProductCatalogID int64
	Synonyms         []string
}

// Intent belongs to exactly one subject.
type Intent struct {
	ID        int64
	Name      string
	SubjectID int64
	Synonyms  []string
}

// Article carries its linkage at exactly one authoritative granularity:
// IntentID when set, else SubjectID, else the legacy free-text
// product/subproduct pair.
type Article struct {
	ID                 int64  `json:"id"`
	Question           string `json:"question"`
	Answer             string `json:"answer"`
	IntentID           int64  `json:"intentId,omitempty"`
	SubjectID          int64  `json:"subjectId,omitempty"`
	ProductStandard    string `json:"productStandard,omitempty"`
	SubproductStandard string `json:"subproductStandard,omitempty"`
}

// Node is one level of the built tree. FullPath is the breadcrumb from the
// root and is unique within one build; the consuming UI keys expand/collapse
// state on it.
type Node struct {
	Name       string    `json:"name"`
	Level      Level     `json:"level"`
	FullPath   string    `json:"fullPath"`
	Children   []*Node   `json:"children"`
	Articles   []Article `json:"articles"`
	ProductID  int64     `json:"productId,omitempty"`
	SubjectID  int64     `json:"subjectId,omitempty"`
	IntentID   int64     `json:"intentId,omitempty"`
}

// Report lists everything Build could not place through its normal linkage,
// so operators can be alerted instead of losing data to a rendering fallback.
type Report struct {
	UnplacedSubjects     []int64 `json:"unplacedSubjects"`
	UnplacedIntents      []int64 `json:"unplacedIntents"`
	UnclassifiedArticles []int64 `json:"unclassifiedArticles"`
}

type builder struct {
	products        []Product
	productsByID    map[int64]Product
	productNodes    map[string]*Node
	productOrder    []string
	subproductNodes map[string]*Node
	subjectNodes    map[int64]*Node
	intentNodes     map[int64]*Node
	report          Report
}

// Build assembles the tree. Deterministic and pure: same inputs, same tree.
func Build(products []Product, subjects []Subject, intents []Intent, articles []Article) ([]*Node, Report) {
	b := &builder{
		products:        products,
		productsByID:    make(map[int64]Product, len(products)),
		productNodes:    make(map[string]*Node),
		subproductNodes: make(map[string]*Node),
		subjectNodes:    make(map[int64]*Node, len(subjects)),
		intentNodes:     make(map[int64]*Node, len(intents)),
	}
	for _, product := range products {
		b.productsByID[product.ID] = product
	}

	b.seedCatalog()
	b.placeSubjects(subjects)
	b.placeIntents(intents)
	b.placeArticles(articles)

	roots := make([]*Node, 0, len(b.productOrder))
	for _, name := range b.productOrder {
		roots = append(roots, b.productNodes[name])
	}

	collator := collate.New(language.BrazilianPortuguese)
	sort.SliceStable(roots, func(i, j int) bool {
		return collator.CompareString(roots[i].Name, roots[j].Name) < 0
	})
	for _, root := range roots {
		sortNode(root, collator)
	}
	return roots, b.report
}

func (b *builder) seedCatalog() {
	for _, product := range b.products {
		node := b.productNode(product.ProductName)
		if product.SubproductName == "" {
			// Only the generic row exposes its id at the product level.
			if node.ProductID == 0 {
				node.ProductID = product.ID
			}
			continue
		}
		b.subproductNode(node, product.SubproductName, product.ID)
	}
}

func (b *builder) productNode(name string) *Node {
	if node, ok := b.productNodes[name]; ok {
		return node
	}
	node := &Node{
		Name:     name,
		Level:    LevelProduct,
		FullPath: name,
		Children: []*Node{},
		Articles: []Article{},
	}
	b.productNodes[name] = node
	b.productOrder = append(b.productOrder, name)
	return node
}

func (b *builder) subproductNode(parent *Node, name string, productID int64) *Node {
	key := parent.Name + "|" + name
	if node, ok := b.subproductNodes[key]; ok {
		if node.ProductID == 0 {
			node.ProductID = productID
		}
		return node
	}
	node := &Node{
		Name:      name,
		Level:     LevelSubproduct,
		FullPath:  parent.Name + pathSeparator + name,
		Children:  []*Node{},
		Articles:  []Article{},
		ProductID: productID,
	}
	b.subproductNodes[key] = node
	parent.Children = append(parent.Children, node)
	return node
}

func (b *builder) placeSubjects(subjects []Subject) {
	for _, subject := range subjects {
		owner, ok := b.productsByID[subject.ProductCatalogID]
		if !ok {
			// Dangling catalog reference: there is no product name to hang
			// the subject under, so report it rather than guessing.
			b.report.UnplacedSubjects = append(b.report.UnplacedSubjects, subject.ID)
			continue
		}

		parent := b.productNode(owner.ProductName)
		if owner.SubproductName != "" {
			parent = b.subproductNode(parent, owner.SubproductName, owner.ID)
		}

		if _, exists := b.subjectNodes[subject.ID]; exists {
			continue
		}
		node := &Node{
			Name:      subject.Name,
			Level:     LevelSubject,
			FullPath:  parent.FullPath + pathSeparator + subject.Name,
			Children:  []*Node{},
			Articles:  []Article{},
			SubjectID: subject.ID,
		}
		b.subjectNodes[subject.ID] = node
		parent.Children = append(parent.Children, node)
	}
}

func (b *builder) placeIntents(intents []Intent) {
	for _, intent := range intents {
		parent, ok := b.subjectNodes[intent.SubjectID]
		if !ok {
			b.report.UnplacedIntents = append(b.report.UnplacedIntents, intent.ID)
			continue
		}
		if _, exists := b.intentNodes[intent.ID]; exists {
			continue
		}
		node := &Node{
			Name:      intent.Name,
			Level:     LevelIntent,
			FullPath:  parent.FullPath + pathSeparator + intent.Name,
			Children:  []*Node{},
			Articles:  []Article{},
			SubjectID: intent.SubjectID,
			IntentID:  intent.ID,
		}
		b.intentNodes[intent.ID] = node
		parent.Children = append(parent.Children, node)
	}
}

// placeArticles applies the placement precedence: intent linkage, then
// subject linkage, then the legacy free-text product/subproduct pair, then
// the synthetic unclassified bucket.
func (b *builder) placeArticles(articles []Article) {
	for _, article := range articles {
		if article.IntentID != 0 {
			if node, ok := b.intentNodes[article.IntentID]; ok {
				node.Articles = append(node.Articles, article)
				continue
			}
		}
		if article.SubjectID != 0 {
			if node, ok := b.subjectNodes[article.SubjectID]; ok {
				node.Articles = append(node.Articles, article)
				continue
			}
		}
		b.placeByStandard(article)
	}
}

func (b *builder) placeByStandard(article Article) {
	if strings.TrimSpace(article.ProductStandard) == "" {
		node := b.productNode(UnclassifiedName)
		node.Articles = append(node.Articles, article)
		b.report.UnclassifiedArticles = append(b.report.UnclassifiedArticles, article.ID)
		return
	}

	parent := b.findProductNode(article.ProductStandard)
	if parent == nil {
		parent = b.productNode(article.ProductStandard)
	}
	if strings.TrimSpace(article.SubproductStandard) != "" {
		sub := b.findChildByName(parent, article.SubproductStandard, LevelSubproduct)
		if sub == nil {
			sub = b.subproductNode(parent, article.SubproductStandard, 0)
		}
		sub.Articles = append(sub.Articles, article)
		return
	}
	parent.Articles = append(parent.Articles, article)
}

func (b *builder) findProductNode(name string) *Node {
	if node, ok := b.productNodes[name]; ok {
		return node
	}
	folded := foldName(name)
	for _, candidate := range b.productOrder {
		if foldName(candidate) == folded {
			return b.productNodes[candidate]
		}
	}
	return nil
}

func (b *builder) findChildByName(parent *Node, name string, level Level) *Node {
	folded := foldName(name)
	for _, child := range parent.Children {
		if child.Level == level && foldName(child.Name) == folded {
			return child
		}
	}
	return nil
}

func sortNode(node *Node, collator *collate.Collator) {
	sort.SliceStable(node.Children, func(i, j int) bool {
		return collator.CompareString(node.Children[i].Name, node.Children[j].Name) < 0
	})
	sort.SliceStable(node.Articles, func(i, j int) bool {
		return collator.CompareString(node.Articles[i].Question, node.Articles[j].Question) < 0
	})
	for _, child := range node.Children {
		sortNode(child, collator)
	}
}

// foldName makes node-name comparison case- and accent-insensitive, matching
// how free-text productStandard values were captured.
func foldName(name string) string {
	decomposed := norm.NFD.String(strings.ToLower(strings.TrimSpace(name)))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
