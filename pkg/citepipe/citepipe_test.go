package citepipe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/pgzip"

	"github.com/cognicore/citepipe/pkg/citepipe/config"
	"github.com/cognicore/citepipe/pkg/citepipe/index"
	"github.com/cognicore/citepipe/pkg/citepipe/store"
	"github.com/cognicore/citepipe/pkg/citepipe/store/memstore"
	"github.com/cognicore/citepipe/pkg/citepipe/tokenize"
)

// periodDetector splits sentences after ". " so tests are deterministic.
type periodDetector struct{}

func (periodDetector) Sentences(text string) []string {
	var out []string
	for {
		i := strings.Index(text, ". ")
		if i < 0 {
			break
		}
		out = append(out, text[:i+1])
		text = text[i+2:]
	}
	if strings.TrimSpace(text) != "" {
		out = append(out, text)
	}
	return out
}

// boomDetector panics on text containing its trigger word, standing in
// for any parsing code gone wrong on one file.
type boomDetector struct{}

func (boomDetector) Sentences(text string) []string {
	if strings.Contains(text, "explode") {
		panic("boom")
	}
	return periodDetector{}.Sentences(text)
}

// fakeIndexer records what would be indexed.
type fakeIndexer struct {
	mu      sync.Mutex
	added   []index.SearchDoc
	commits int
}

func (f *fakeIndexer) Add(ctx context.Context, d index.SearchDoc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, d)
	return nil
}

func (f *fakeIndexer) Commit(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	return nil
}

func (f *fakeIndexer) Close() error { return nil }

const articleTemplate = `<article article-type="research-article">
<front>
<article-meta>
<article-id pub-id-type="pmc">PMCID</article-id>
<title-group><article-title>Cell growth</article-title></title-group>
<contrib-group><contrib contrib-type="author"><name><surname>Doe</surname><given-names>J</given-names></name></contrib></contrib-group>
<pub-date><year>2003</year><month>4</month></pub-date>
<abstract><p>Cells divide.</p></abstract>
</article-meta>
</front>
<body><p>Cells divide quickly. They also grow <xref ref-type="bibr" rid="B1">[1]</xref>.</p></body>
<back><ref-list>
<ref id="B1"><citation><person-group person-group-type="author"><name><surname>Smith</surname></name></person-group><article-title>On growth</article-title><pub-id pub-id-type="pmid">77</pub-id></citation></ref>
</ref-list></back>
</article>
`

func article(pmcid string) string {
	return strings.Replace(articleTemplate, "PMCID", pmcid, 1)
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := pgzip.NewWriter(f)
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func newTestImporter(t *testing.T, xmlDir, txtDir string, st store.Store, idx index.Indexer) *Importer {
	t.Helper()
	imp, err := New(Options{
		Config: config.Config{
			XMLDir:  xmlDir,
			TxtDir:  txtDir,
			Workers: 2,
		},
		NewStore:  func(ctx context.Context) (store.Store, error) { return st, nil },
		Indexer:   idx,
		Tokenizer: tokenize.New(periodDetector{}),
		Logf:      t.Logf,
	})
	if err != nil {
		t.Fatalf("new importer: %v", err)
	}
	return imp
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	xmlDir := t.TempDir()
	txtDir := t.TempDir()

	files := map[string]string{
		"good.nxml": article("11"),
		"rejected.nxml": strings.Replace(article("13"),
			`article-type="research-article"`, `article-type="editorial"`, 1),
		"nobody.nxml": `<article article-type="research-article"><front><article-meta>` +
			`<article-id pub-id-type="pmc">14</article-id></article-meta></front></article>`,
		"ignored.txt": "not an article",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(xmlDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(xmlDir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeGzip(t, filepath.Join(xmlDir, "sub", "packed.nxml.gz"), article("12"))

	st := memstore.New()
	idx := &fakeIndexer{}
	imp := newTestImporter(t, xmlDir, txtDir, st, idx)

	run, err := imp.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Files != 4 {
		t.Errorf("files = %d, want 4", run.Files)
	}
	if run.Failed != 0 {
		t.Errorf("failed = %d, want 0 (missing body is a skip)", run.Failed)
	}
	if run.ID == "" || run.Finished.Before(run.Started) {
		t.Errorf("run = %+v", run)
	}

	// Accepted documents from both plain and gzipped files are stored.
	for _, pmcid := range []int{11, 12} {
		d, ok, err := st.GetDocument(ctx, pmcid)
		if err != nil || !ok {
			t.Fatalf("document %d: ok=%v err=%v", pmcid, ok, err)
		}
		if d.Title != "Cell growth" || d.Year != 2003 || d.Month != 4 {
			t.Errorf("document %d = %+v", pmcid, d)
		}
		authors, _ := st.GetAuthors(ctx, pmcid)
		if len(authors) != 1 || authors[0].LastName != "Doe" {
			t.Errorf("authors of %d = %+v", pmcid, authors)
		}
		cits, _ := st.GetCitations(ctx, pmcid)
		if len(cits) != 1 || cits[0].RefID != "B1" || cits[0].Count != 1 {
			t.Errorf("citations of %d = %+v", pmcid, cits)
		}
		refs, _ := st.GetReferences(ctx, pmcid)
		if len(refs) != 1 || refs[0].PMID != 77 || refs[0].AuthorsKey != "smith" || refs[0].TitleKey != "ongrowth" {
			t.Errorf("references of %d = %+v", pmcid, refs)
		}
	}

	// The rejected type and the file without a body persist nothing.
	for _, pmcid := range []int{13, 14} {
		if _, ok, _ := st.GetDocument(ctx, pmcid); ok {
			t.Errorf("document %d should not be stored", pmcid)
		}
	}

	if len(idx.added) != 2 {
		t.Errorf("indexed = %d documents, want 2", len(idx.added))
	}
	for _, d := range idx.added {
		if !strings.Contains(d.Body, "Cells divide quickly.") {
			t.Errorf("indexed body = %q", d.Body)
		}
		if d.Title != "Cell growth" {
			t.Errorf("indexed title = %q", d.Title)
		}
	}
	if idx.commits == 0 {
		t.Error("index never committed")
	}

	runs, err := st.GetImportRuns(ctx, 10)
	if err != nil || len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("import runs = %+v (%v)", runs, err)
	}

	// Plain-text rendering mirrors the source tree.
	txt, err := os.ReadFile(filepath.Join(txtDir, "good.txt"))
	if err != nil {
		t.Fatalf("reading rendering: %v", err)
	}
	if got := string(txt); got != "Cells divide quickly. They also grow [1]." {
		t.Errorf("rendering = %q", got)
	}
	if _, err := os.Stat(filepath.Join(txtDir, "sub", "packed.txt")); err != nil {
		t.Errorf("gzipped rendering: %v", err)
	}
}

func TestRunReimportReplaces(t *testing.T) {
	ctx := context.Background()
	xmlDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(xmlDir, "a.nxml"), []byte(article("11")), 0o644); err != nil {
		t.Fatal(err)
	}

	st := memstore.New()
	imp := newTestImporter(t, xmlDir, "", st, nil)

	for i := 0; i < 2; i++ {
		if _, err := imp.Run(ctx); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if n, _ := st.CountDocuments(ctx); n != 1 {
		t.Errorf("documents = %d, want 1 after re-import", n)
	}
	cits, _ := st.GetCitations(ctx, 11)
	if len(cits) != 1 {
		t.Errorf("citations = %d, want 1 after re-import", len(cits))
	}
	authors, _ := st.GetAuthors(ctx, 11)
	if len(authors) != 1 {
		t.Errorf("authors = %d, want 1 after re-import", len(authors))
	}
}

func TestRunSurvivesPanickingFile(t *testing.T) {
	ctx := context.Background()
	xmlDir := t.TempDir()

	files := map[string]string{
		"good.nxml": article("11"),
		"bad.nxml": strings.Replace(article("12"),
			"Cells divide quickly.", "Files explode sometimes.", 1),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(xmlDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	st := memstore.New()
	imp, err := New(Options{
		Config:    config.Config{XMLDir: xmlDir, Workers: 2},
		NewStore:  func(ctx context.Context) (store.Store, error) { return st, nil },
		Tokenizer: tokenize.New(boomDetector{}),
		Logf:      t.Logf,
	})
	if err != nil {
		t.Fatalf("new importer: %v", err)
	}

	run, err := imp.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Files != 2 || run.Failed != 1 {
		t.Errorf("run = %d files, %d failed, want 2 files with 1 failure", run.Files, run.Failed)
	}
	if _, ok, _ := st.GetDocument(ctx, 11); !ok {
		t.Error("healthy file was not imported")
	}
	if _, ok, _ := st.GetDocument(ctx, 12); ok {
		t.Error("panicking file left a document behind")
	}
}

func TestSplitBody(t *testing.T) {
	pre, openTag, body, closeTag, post, err := splitBody(`<article><body id="b"><p>x</p></body><back/></article>`)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if pre != "<article>" || openTag != `<body id="b">` || body != "<p>x</p>" ||
		closeTag != "</body>" || post != "<back/></article>" {
		t.Errorf("parts = %q %q %q %q %q", pre, openTag, body, closeTag, post)
	}

	if _, _, _, _, _, err := splitBody("<article/>"); err == nil {
		t.Error("missing body not detected")
	}
	if _, _, _, _, _, err := splitBody("<body>a</body><body>b</body>"); err == nil {
		t.Error("double body not detected")
	}
}

func TestRenderPlainText(t *testing.T) {
	in := `<sec><p>One &#8211; two.</p><p>Three <xref ref-type="bibr" rid="B1">[1]</xref>.</p></sec>`
	got := renderPlainText(in)
	want := "One  two.\n\nThree [1]."
	if got != want {
		t.Errorf("rendering = %q, want %q", got, want)
	}
}
