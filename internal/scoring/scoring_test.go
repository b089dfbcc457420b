package scoring

import (
	"reflect"
	"strings"
	"testing"

	"github.com/czhharrison/MerchantChat/internal/audience"
	"github.com/czhharrison/MerchantChat/internal/config"
	"github.com/czhharrison/MerchantChat/internal/tokenize"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	return NewEngine(cfg.Scoring, cfg.Dictionary.Stopwords,
		tokenize.NewLexicon(cfg.Vocabulary()), audience.NewResolver(cfg.Audiences))
}

func TestScore_WorkedExample(t *testing.T) {
	e := newTestEngine(t)
	r := e.Score("【爆款】粉色连衣裙", []string{"连衣裙", "粉色"}, "")

	if r.Score != 0.855 {
		t.Errorf("score: got %v, want 0.855", r.Score)
	}
	if r.Percentage != "85.5%" {
		t.Errorf("percentage: got %q, want 85.5%%", r.Percentage)
	}
	if r.Coverage != 1 {
		t.Errorf("coverage: got %v", r.Coverage)
	}
	if r.LengthFitness != 0.5 || r.TitleLength != 9 {
		t.Errorf("length: got %v (%d runes)", r.LengthFitness, r.TitleLength)
	}
	if r.SymbolScore != 0.85 || !r.HasBracket || r.HasEmoji {
		t.Errorf("symbol: got %v bracket=%v emoji=%v", r.SymbolScore, r.HasBracket, r.HasEmoji)
	}
	if r.UrgencyCount != 1 || r.UrgencyScore != 0.2 {
		t.Errorf("urgency: got %d / %v", r.UrgencyCount, r.UrgencyScore)
	}
	wantRecs := []string{
		"标题长度建议控制在20-30字符之间",
		"可以适当添加表情符号增加标题吸引力",
	}
	if !reflect.DeepEqual(r.Recommendations, wantRecs) {
		t.Errorf("recommendations: got %v", r.Recommendations)
	}
	if len(r.Issues) != 2 {
		t.Errorf("expected 2 issues, got %v", r.Issues)
	}
}

func TestScore_EmptyKeywordsMeansZeroCoverage(t *testing.T) {
	e := newTestEngine(t)
	r := e.Score("【爆款】粉色连衣裙", []string{}, "")
	if r.Coverage != 0 {
		t.Errorf("expected coverage 0, got %v", r.Coverage)
	}
	if r.Score != 0.555 {
		t.Errorf("expected 0.555, got %v", r.Score)
	}
	if r.Recommendations[0] != "建议增加更多目标关键词以提升搜索匹配度" {
		t.Errorf("expected coverage recommendation first, got %v", r.Recommendations)
	}
}

func TestScore_NilKeywordsDerivedFromTitle(t *testing.T) {
	e := newTestEngine(t)
	r := e.Score("粉色连衣裙", nil, "")
	if len(r.TargetKeywords) == 0 {
		t.Fatal("expected derived keywords")
	}
	if r.Coverage != 1 {
		t.Errorf("derived keywords should be fully covered, got %v", r.Coverage)
	}
}

func TestScore_ZeroLengthTitle(t *testing.T) {
	e := newTestEngine(t)
	r := e.Score("", []string{"连衣裙"}, "")
	if r.TitleLength != 0 || r.LengthFitness != 0.5 {
		t.Errorf("got length %d fitness %v", r.TitleLength, r.LengthFitness)
	}
	if r.Score < 0 || r.Score > 1 {
		t.Errorf("score out of range: %v", r.Score)
	}
}

func TestScore_GoodTitleGetsSingleRecommendation(t *testing.T) {
	e := newTestEngine(t)
	r := e.Score("🔥【限时特惠】粉色纯棉连衣裙女夏季显瘦百搭新款", []string{"连衣裙", "粉色"}, "年轻女性")
	if len(r.Issues) != 0 {
		t.Errorf("expected no issues, got %v", r.Issues)
	}
	if len(r.Recommendations) != 1 || r.Recommendations[0] != goodQuality {
		t.Errorf("expected A/B recommendation, got %v", r.Recommendations)
	}
	if !r.AudienceMatched {
		t.Error("expected audience vocabulary match on 显瘦")
	}
	if r.Score != 0.94 {
		t.Errorf("expected 0.94, got %v", r.Score)
	}
}

func TestScore_AudienceVocabularyDiagnostic(t *testing.T) {
	e := newTestEngine(t)
	r := e.Score("🔥【限时特惠】粉色纯棉连衣裙女夏季百搭新款", []string{"连衣裙"}, "年轻女性")
	if r.AudienceMatched {
		t.Fatal("did not expect audience match")
	}
	last := r.Recommendations[len(r.Recommendations)-1]
	if !strings.Contains(last, "年轻女性") || !strings.Contains(last, "ins风") {
		t.Errorf("unexpected audience recommendation %q", last)
	}

	generic := e.Score("🔥【限时特惠】粉色纯棉连衣裙女夏季百搭新款", []string{"连衣裙"}, "通用")
	if len(generic.Issues) != 0 {
		t.Errorf("generic audience should add no diagnostic, got %v", generic.Issues)
	}
}

func TestScore_UrgencyCapped(t *testing.T) {
	e := newTestEngine(t)
	r := e.Score("限时抢购特惠新品爆款热销", []string{}, "")
	if r.UrgencyCount != 6 {
		t.Errorf("expected 6 urgency hits, got %d", r.UrgencyCount)
	}
	if r.UrgencyScore != 0.6 {
		t.Errorf("expected capped 0.6, got %v", r.UrgencyScore)
	}
}

func TestScore_BoundsAndIdempotence(t *testing.T) {
	e := newTestEngine(t)
	titles := []string{
		"",
		"a",
		"🔥💥⭐🎉【限时】【抢购】特惠新品爆款热销连衣裙粉色连衣裙粉色连衣裙",
		strings.Repeat("长", 200),
		"Pink Dress 限时",
	}
	for _, title := range titles {
		first := e.Score(title, []string{"连衣裙", "PINK"}, "学生")
		if first.Score < 0 || first.Score > 1 {
			t.Errorf("%q: score out of range %v", title, first.Score)
		}
		if first.Coverage < 0 || first.Coverage > 1 {
			t.Errorf("%q: coverage out of range %v", title, first.Coverage)
		}
		if first.Percentage != Percentage(first.Score) {
			t.Errorf("%q: percentage %q does not match score %v", title, first.Percentage, first.Score)
		}
		second := e.Score(title, []string{"连衣裙", "PINK"}, "学生")
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%q: scoring not idempotent", title)
		}
	}
}

func TestScore_CaseFoldedCoverage(t *testing.T) {
	e := newTestEngine(t)
	r := e.Score("Pink Dress 限时", []string{"PINK", "dress", "skirt"}, "")
	if len(r.CoveredKeywords) != 2 {
		t.Errorf("expected 2 covered, got %v", r.CoveredKeywords)
	}
	if got := r.Missing(); len(got) != 1 || got[0] != "skirt" {
		t.Errorf("missing: got %v", got)
	}
}

func TestLengthFitness_Bands(t *testing.T) {
	cases := map[int]float64{0: 0.5, 14: 0.5, 15: 0.8, 19: 0.8, 20: 1, 30: 1, 31: 0.8, 35: 0.8, 36: 0.5}
	for n, want := range cases {
		if got := lengthFitness(n); got != want {
			t.Errorf("lengthFitness(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestPercentage(t *testing.T) {
	cases := map[float64]string{0: "0.0%", 1: "100.0%", 0.855: "85.5%", 0.7: "70.0%"}
	for score, want := range cases {
		if got := Percentage(score); got != want {
			t.Errorf("Percentage(%v) = %q, want %q", score, got, want)
		}
	}
}
