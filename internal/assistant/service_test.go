package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/czhharrison/MerchantChat/internal/collab"
	"github.com/czhharrison/MerchantChat/internal/config"
	"github.com/czhharrison/MerchantChat/internal/conversation"
	"github.com/czhharrison/MerchantChat/internal/generate"
	"github.com/czhharrison/MerchantChat/internal/storage"
)

// #region fixtures

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	svc, err := New(Deps{
		Config:       config.Default(),
		DB:           db,
		Collaborator: collab.Absent(),
		Selector:     generate.FirstSelector{},
	})
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

const dressText = "粉色夏季纯棉连衣裙，显瘦百搭，价格199元"

// #endregion fixtures

// #region stateless-tests

func TestNew_RequiresDB(t *testing.T) {
	if _, err := New(Deps{Config: config.Default()}); err == nil {
		t.Fatal("expected error without a database")
	}
}

func TestRefineTitle_WithoutSession(t *testing.T) {
	svc := newTestService(t)
	out, err := svc.RefineTitle(context.Background(), TitleInput{Description: dressText, Style: "爆款"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Candidate.Title == "" || !strings.Contains(out.Candidate.Title, "连衣裙") {
		t.Errorf("title: got %q", out.Candidate.Title)
	}
	if out.Report.Score < 0 || out.Report.Score > 1 {
		t.Errorf("score out of range: %v", out.Report.Score)
	}
}

func TestScoreTitle_ReferenceExample(t *testing.T) {
	svc := newTestService(t)
	rep := svc.ScoreTitle("【爆款】粉色连衣裙", []string{"连衣裙", "粉色"}, "")
	if rep.Score != 0.855 || rep.Percentage != "85.5%" {
		t.Errorf("got %v / %s", rep.Score, rep.Percentage)
	}
}

func TestSuggestStrategy_ResolvesAlias(t *testing.T) {
	svc := newTestService(t)
	got := svc.SuggestStrategy("数码", "大学生", "低")
	if !strings.HasPrefix(got, "策略建议：教育优惠政策") {
		t.Errorf("got %q", got)
	}
}

func TestAnalyzeCompetitor_DerivesOwnKeywords(t *testing.T) {
	svc := newTestService(t)
	rep := svc.AnalyzeCompetitor("时尚连衣裙新款", nil)
	if len(rep.Common) != len(rep.OwnKeywords) {
		t.Errorf("common %v != own %v", rep.Common, rep.OwnKeywords)
	}
}

func TestSolve(t *testing.T) {
	svc := newTestService(t)
	sol, err := svc.Solve(context.Background(), SolveInput{
		Description:     dressText,
		Audience:        "女生",
		Budget:          "高",
		CompetitorTitle: "【限时特惠】韩版碎花连衣裙女夏季新款",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(sol.Candidates) != len(svc.Styles()) {
		t.Fatalf("expected one candidate per style, got %d", len(sol.Candidates))
	}
	for _, c := range sol.Candidates {
		if c.Report.Score > sol.Recommended.Report.Score {
			t.Errorf("recommended %.3f is not the best (%.3f)", sol.Recommended.Report.Score, c.Report.Score)
		}
	}
	if sol.Audience != "年轻女性" {
		t.Errorf("audience: got %q", sol.Audience)
	}
	if !strings.HasSuffix(sol.Strategy, "预算策略：全渠道投放，品牌代言人合作，线下活动配合") {
		t.Errorf("strategy: got %q", sol.Strategy)
	}
	if sol.Competitor == nil || len(sol.Competitor.Suggestions) == 0 {
		t.Errorf("competitor: got %+v", sol.Competitor)
	}
}

// #endregion stateless-tests

// #region session-tests

func TestSessionPreferencesSteerStyle(t *testing.T) {
	svc := newTestService(t)
	id, err := svc.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	for _, text := range []string{"我比较喜欢简约风格", "简约"} {
		if _, err := svc.AddTurn(id, conversation.RoleUser, text); err != nil {
			t.Fatal(err)
		}
	}

	snap, err := svc.SessionPreferences(id)
	if err != nil {
		t.Fatal(err)
	}
	if top, ok := snap.TopStyle(); !ok || top != "简约" {
		t.Fatalf("preferred styles: %v", snap.PreferredStyles)
	}

	c, err := svc.GenerateTitle(context.Background(), TitleInput{Description: dressText, SessionID: id})
	if err != nil {
		t.Fatal(err)
	}
	if c.Style != "简约" {
		t.Errorf("style: got %q", c.Style)
	}
}

func TestUnknownSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SessionPreferences("missing"); !errors.Is(err, conversation.ErrSessionNotFound) {
		t.Errorf("SessionPreferences: got %v", err)
	}
	if _, err := svc.GenerateTitle(ctx, TitleInput{Description: dressText, SessionID: "missing"}); !errors.Is(err, conversation.ErrSessionNotFound) {
		t.Errorf("GenerateTitle: got %v", err)
	}
	if _, err := svc.Respond(ctx, "missing", "你好"); !errors.Is(err, conversation.ErrSessionNotFound) {
		t.Errorf("Respond: got %v", err)
	}
}

func TestRespond_TitleThenFollowUp(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id, _ := svc.NewSession()

	r, err := svc.Respond(ctx, id, "帮我为粉色连衣裙生成一个爆款风格的标题")
	if err != nil {
		t.Fatal(err)
	}
	if r.Classification.Intent != IntentTitle {
		t.Fatalf("intent: got %s", r.Classification.Intent)
	}
	if !strings.HasPrefix(r.Text, "推荐标题：") || !strings.Contains(r.Text, "风格：爆款") {
		t.Errorf("reply: %q", r.Text)
	}

	r, err = svc.Respond(ctx, id, "再来一个")
	if err != nil {
		t.Fatal(err)
	}
	if r.Classification.Intent != IntentTitle || !strings.Contains(r.Text, "连衣裙") {
		t.Errorf("follow-up should reuse the product: %+v", r)
	}

	turns, err := svc.History(id, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	if turns[1].Role != conversation.RoleAssistant || turns[1].Text == "" {
		t.Errorf("assistant turn: %+v", turns[1])
	}
}

func TestRespond_Intents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id, _ := svc.NewSession()

	tests := []struct {
		prompt     string
		wantPrefix string
	}{
		{"你好", "我可以帮你"},
		{"评估标题：【爆款】粉色连衣裙", "预估CTR："},
		{"评估一下CTR", "请把要评估的标题"},
		{"分析竞品标题「韩版碎花连衣裙女夏季新款」", "竞品预估CTR："},
		{"数码产品怎么推广，预算低", "策略建议：新品首发优惠"},
		{"给我一套完整方案", "推荐标题："},
	}
	for _, tt := range tests {
		r, err := svc.Respond(ctx, id, tt.prompt)
		if err != nil {
			t.Fatalf("%s: %v", tt.prompt, err)
		}
		if !strings.HasPrefix(r.Text, tt.wantPrefix) {
			t.Errorf("%s: got %q", tt.prompt, r.Text)
		}
	}
}

func TestRespond_SessionsAreIndependent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	const sessions, turns = 3, 2

	ids := make([]string, sessions)
	for i := range ids {
		id, err := svc.NewSession()
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id
	}

	var wg sync.WaitGroup
	errs := make(chan error, sessions*turns)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < turns; i++ {
				if _, err := svc.Respond(ctx, id, fmt.Sprintf("粉色连衣裙标题 %d", i)); err != nil {
					errs <- err
				}
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for _, id := range ids {
		h, err := svc.History(id, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(h) != turns*2 {
			t.Errorf("session %s: expected %d turns, got %d", id, turns*2, len(h))
		}
	}
}

// #endregion session-tests

// #region session-state-tests

func TestSessionLocksAreReleased(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id, _ := svc.NewSession()

	if _, err := svc.Respond(ctx, id, "帮我写个连衣裙标题"); err != nil {
		t.Fatal(err)
	}
	svc.Respond(ctx, "missing", "你好")
	svc.SessionPreferences("missing")

	svc.mu.Lock()
	n := len(svc.locks)
	svc.mu.Unlock()
	if n != 0 {
		t.Errorf("expected no retained session locks, got %d", n)
	}
}

func TestFollowUpStateIsBounded(t *testing.T) {
	svc := newTestService(t)
	svc.lastCap = 2
	ctx := context.Background()

	ids := make([]string, 3)
	for i := range ids {
		id, err := svc.NewSession()
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id
		if _, err := svc.Respond(ctx, id, "帮我写个连衣裙标题"); err != nil {
			t.Fatal(err)
		}
	}

	if len(svc.last) != 2 {
		t.Fatalf("expected 2 tracked sessions, got %d", len(svc.last))
	}
	if _, ok := svc.previous(ids[0]); ok {
		t.Error("oldest session should be forgotten")
	}
	if cls, ok := svc.previous(ids[2]); !ok || cls.Intent != IntentTitle {
		t.Errorf("latest session: got %+v, %v", cls, ok)
	}

	r, err := svc.Respond(ctx, ids[0], "再来一个")
	if err != nil {
		t.Fatal(err)
	}
	if r.Classification.Intent == IntentTitle {
		t.Error("forgotten session should not inherit the title intent")
	}
}

// #endregion session-state-tests
