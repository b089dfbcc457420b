package tokenize

// #region imports
import (
	"sync"

	"github.com/go-ego/gse"
)

// #endregion

// #region gse

// Gse segments text with the gse Chinese segmenter. Vocabulary entries are
// matched first so domain terms survive intact; the remaining Han runs go
// through gse. The dictionary loads on first use; if it fails to load, Gse
// keeps working as a plain lexicon tokenizer.
type Gse struct {
	lex *Lexicon

	once sync.Once
	mu   sync.Mutex
	seg  gse.Segmenter
	err  error
}

// NewGse creates a gse-backed tokenizer seeded with vocab.
func NewGse(vocab []string) *Gse {
	return &Gse{lex: NewLexicon(vocab)}
}

// Err reports the dictionary load error, if any. It forces the load.
func (g *Gse) Err() error {
	g.load()
	return g.err
}

// Tokenize implements Tokenizer.
func (g *Gse) Tokenize(text string) []string {
	g.load()
	if g.err != nil {
		return g.lex.Tokenize(text)
	}
	withSplit := *g.lex
	withSplit.split = g.cut
	return withSplit.Tokenize(text)
}

func (g *Gse) load() {
	g.once.Do(func() {
		g.seg, g.err = gse.New()
	})
}

func (g *Gse) cut(run string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seg.Cut(run, true)
}

// #endregion gse
