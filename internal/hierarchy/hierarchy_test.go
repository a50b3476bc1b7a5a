package hierarchy

import (
	"testing"
)

func catalogFixture() []Product {
	return []Product{
		{ID: 1, ProductName: "Cartões"},
		{ID: 2, ProductName: "Cartões", SubproductName: "Cartão de Crédito"},
		{ID: 3, ProductName: "Conta Digital"},
	}
}

func findRoot(t *testing.T, roots []*Node, name string) *Node {
	t.Helper()
	for _, root := range roots {
		if root.Name == name {
			return root
		}
	}
	t.Fatalf("root %q not found", name)
	return nil
}

func findChild(t *testing.T, parent *Node, name string) *Node {
	t.Helper()
	for _, child := range parent.Children {
		if child.Name == name {
			return child
		}
	}
	t.Fatalf("child %q not found under %q", name, parent.FullPath)
	return nil
}

func TestBuildPlacesFullChain(t *testing.T) {
	subjects := []Subject{{ID: 10, Name: "Fatura", ProductCatalogID: 2}}
	intents := []Intent{{ID: 20, Name: "Segunda via", SubjectID: 10}}
	articles := []Article{{ID: 30, Question: "Como emitir segunda via?", IntentID: 20}}

	roots, report := Build(catalogFixture(), subjects, intents, articles)

	product := findRoot(t, roots, "Cartões")
	sub := findChild(t, product, "Cartão de Crédito")
	subject := findChild(t, sub, "Fatura")
	intent := findChild(t, subject, "Segunda via")

	if intent.FullPath != "Cartões > Cartão de Crédito > Fatura > Segunda via" {
		t.Fatalf("unexpected full path %q", intent.FullPath)
	}
	if len(intent.Articles) != 1 || intent.Articles[0].ID != 30 {
		t.Fatalf("article not placed under intent: %+v", intent.Articles)
	}
	if len(report.UnclassifiedArticles) != 0 {
		t.Fatalf("unexpected unclassified articles: %v", report.UnclassifiedArticles)
	}
}

func TestBuildFallsBackToSubjectLinkage(t *testing.T) {
	subjects := []Subject{{ID: 10, Name: "Fatura", ProductCatalogID: 1}}
	articles := []Article{{ID: 30, Question: "Fechamento da fatura", SubjectID: 10}}

	roots, _ := Build(catalogFixture(), subjects, nil, articles)

	subject := findChild(t, findRoot(t, roots, "Cartões"), "Fatura")
	if len(subject.Articles) != 1 {
		t.Fatalf("expected article under subject, got %+v", subject.Articles)
	}
}

func TestBuildCreatesProductFromFreeText(t *testing.T) {
	// An article whose only linkage is the legacy free-text pair still lands
	// under a product-level node, created on demand when the catalog lacks it.
	articles := []Article{{
		ID:              30,
		Question:        "Cartão adicional",
		ProductStandard: "Cards",
	}}

	roots, report := Build([]Product{{ID: 1, ProductName: "Cards"}}, nil, nil, articles)

	product := findRoot(t, roots, "Cards")
	if len(product.Articles) != 1 || product.Articles[0].ID != 30 {
		t.Fatalf("expected direct child article of Cards, got %+v", product.Articles)
	}
	if len(report.UnclassifiedArticles) != 0 {
		t.Fatalf("free-text placement must not count as unclassified")
	}
	if len(roots) != 1 {
		t.Fatalf("expected a single root, got %d", len(roots))
	}
}

func TestBuildMatchesFreeTextAccentInsensitively(t *testing.T) {
	articles := []Article{{ID: 30, Question: "Anuidade", ProductStandard: "cartoes"}}

	roots, _ := Build(catalogFixture(), nil, nil, articles)

	product := findRoot(t, roots, "Cartões")
	if len(product.Articles) != 1 {
		t.Fatalf("accent-insensitive match failed: %+v", product.Articles)
	}
	for _, root := range roots {
		if root.Name == "cartoes" {
			t.Fatal("duplicate root created despite existing match")
		}
	}
}

func TestBuildRoutesOrphansToUnclassified(t *testing.T) {
	articles := []Article{
		{ID: 30, Question: "Sem vínculo algum"},
		{ID: 31, Question: "Intent sumiu", IntentID: 999},
	}

	roots, report := Build(catalogFixture(), nil, nil, articles)

	bucket := findRoot(t, roots, UnclassifiedName)
	if len(bucket.Articles) != 2 {
		t.Fatalf("expected both orphans in the unclassified bucket, got %+v", bucket.Articles)
	}
	if len(report.UnclassifiedArticles) != 2 {
		t.Fatalf("report should list both orphans, got %v", report.UnclassifiedArticles)
	}
}

func TestBuildReportsDanglingReferences(t *testing.T) {
	subjects := []Subject{{ID: 10, Name: "Fantasma", ProductCatalogID: 999}}
	intents := []Intent{{ID: 20, Name: "Perdido", SubjectID: 888}}

	_, report := Build(catalogFixture(), subjects, intents, nil)

	if len(report.UnplacedSubjects) != 1 || report.UnplacedSubjects[0] != 10 {
		t.Fatalf("unexpected unplaced subjects: %v", report.UnplacedSubjects)
	}
	if len(report.UnplacedIntents) != 1 || report.UnplacedIntents[0] != 20 {
		t.Fatalf("unexpected unplaced intents: %v", report.UnplacedIntents)
	}
}

func TestBuildFullPathsAreUnique(t *testing.T) {
	subjects := []Subject{
		{ID: 10, Name: "Fatura", ProductCatalogID: 1},
		{ID: 11, Name: "Fatura", ProductCatalogID: 2},
	}
	intents := []Intent{
		{ID: 20, Name: "Segunda via", SubjectID: 10},
		{ID: 21, Name: "Segunda via", SubjectID: 11},
	}

	roots, _ := Build(catalogFixture(), subjects, intents, nil)

	seen := map[string]bool{}
	var walk func(*Node)
	walk = func(node *Node) {
		if seen[node.FullPath] {
			t.Fatalf("duplicate full path %q", node.FullPath)
		}
		seen[node.FullPath] = true
		for _, child := range node.Children {
			walk(child)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	if !seen["Cartões > Fatura > Segunda via"] || !seen["Cartões > Cartão de Crédito > Fatura > Segunda via"] {
		t.Fatal("same-named subjects under different parents should keep distinct paths")
	}
}

func TestBuildSortsChildrenWithLocale(t *testing.T) {
	products := []Product{
		{ID: 1, ProductName: "Órgãos"},
		{ID: 2, ProductName: "Pagamentos"},
		{ID: 3, ProductName: "Abertura"},
	}

	roots, _ := Build(products, nil, nil, nil)

	got := make([]string, 0, len(roots))
	for _, root := range roots {
		got = append(got, root.Name)
	}
	want := []string{"Abertura", "Órgãos", "Pagamentos"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("locale sort mismatch: got %v, want %v", got, want)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	subjects := []Subject{{ID: 10, Name: "Fatura", ProductCatalogID: 2}}
	articles := []Article{{ID: 30, Question: "Pergunta", SubjectID: 10}}

	first, _ := Build(catalogFixture(), subjects, nil, articles)
	second, _ := Build(catalogFixture(), subjects, nil, articles)

	var flatten func([]*Node) []string
	flatten = func(nodes []*Node) []string {
		var out []string
		for _, node := range nodes {
			out = append(out, node.FullPath)
			out = append(out, flatten(node.Children)...)
		}
		return out
	}
	a, b := flatten(first), flatten(second)
	if len(a) != len(b) {
		t.Fatalf("tree shape differs between builds: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("node order differs between builds: %v vs %v", a, b)
		}
	}
}
