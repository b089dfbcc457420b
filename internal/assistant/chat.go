package assistant

// #region imports
import (
	"context"
	"fmt"
	"strings"

	"github.com/czhharrison/MerchantChat/internal/attributes"
	"github.com/czhharrison/MerchantChat/internal/conversation"
	"github.com/czhharrison/MerchantChat/internal/preference"
)

// #endregion

// #region types

// Reply is the assistant's answer to one chat turn.
type Reply struct {
	SessionID      string              `json:"session_id"`
	Classification Classification      `json:"classification"`
	Text           string              `json:"text"`
	Preferences    preference.Snapshot `json:"preferences"`
	Payload        any                 `json:"payload,omitempty"`
}

const helpText = "我可以帮你：生成商品标题、评估标题CTR、分析竞品标题、推荐营销策略，或者给出完整方案。请描述你的商品，例如：粉色夏季纯棉连衣裙，价格199元。"

// #endregion types

// #region respond

// Respond records a user turn, answers it and records the answer. The whole
// exchange holds the session lock.
func (s *Service) Respond(ctx context.Context, sessionID, text string) (Reply, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	if _, err := s.store.Append(sessionID, conversation.RoleUser, text); err != nil {
		return Reply{}, err
	}
	turns, err := s.store.Recent(sessionID, s.prefs.Window())
	if err != nil {
		return Reply{}, err
	}
	snap := s.prefs.Extract(turns)

	prev, hasPrev := s.previous(sessionID)
	var cls Classification
	if hasPrev {
		cls = ClassifyIntent(text, s.styleNames, prev)
	} else {
		cls = ClassifyIntent(text, s.styleNames)
	}

	desc := s.productContext(text, turns)
	reply := Reply{SessionID: sessionID, Classification: cls, Preferences: snap}
	reply.Text, reply.Payload = s.answer(ctx, sessionID, cls, desc, &snap)

	if _, err := s.store.Append(sessionID, conversation.RoleAssistant, reply.Text); err != nil {
		return Reply{}, err
	}
	s.remember(sessionID, cls)

	s.log.Debug().
		Str("session", sessionID).
		Str("intent", string(cls.Intent)).
		Msg("turn answered")
	return reply, nil
}

func (s *Service) answer(ctx context.Context, sessionID string, cls Classification, desc attributes.Descriptor, snap *preference.Snapshot) (string, any) {
	audienceTag := ""
	if top, ok := snap.TopAudience(); ok {
		audienceTag = top
	}

	switch cls.Intent {
	case IntentTitle:
		out := s.refine(ctx, TitleInput{Style: cls.Style, Audience: audienceTag, SessionID: sessionID}, desc, snap)
		return fmt.Sprintf("推荐标题：%s\n风格：%s｜预估CTR：%s", out.Candidate.Title, out.Candidate.Style, out.Report.Percentage), out

	case IntentScore:
		title := cls.Quoted
		if title == "" {
			return "请把要评估的标题放在冒号后面，例如：评估标题：【新品】粉色连衣裙", nil
		}
		var keywords []string
		if desc.HasProduct() {
			keywords = desc.TargetKeywords(s.cfg.Refine.KeywordLimit)
		}
		rep := s.ScoreTitle(title, keywords, audienceTag)
		var b strings.Builder
		fmt.Fprintf(&b, "预估CTR：%s（关键词覆盖率 %.0f%%）", rep.Percentage, rep.Coverage*100)
		if len(rep.Issues) > 0 {
			b.WriteString("\n存在问题：" + strings.Join(rep.Issues, "；"))
		}
		if len(rep.Recommendations) > 0 {
			b.WriteString("\n优化建议：" + strings.Join(rep.Recommendations, "；"))
		}
		return b.String(), rep

	case IntentCompetitor:
		title := cls.Quoted
		if title == "" {
			return "请提供竞品标题，例如：分析竞品标题「韩版碎花连衣裙女夏季新款」", nil
		}
		var own []string
		if desc.HasProduct() {
			own = desc.TargetKeywords(s.cfg.Refine.KeywordLimit)
		}
		rep := s.AnalyzeCompetitor(title, own)
		return fmt.Sprintf("竞品预估CTR：%s\n%s", rep.Competitor.Percentage, strings.Join(rep.Suggestions, "\n")), rep

	case IntentStrategy:
		text := s.advisor.Suggest(desc.Category, s.audiences.Resolve(audienceTag).Tag, cls.Budget)
		return text, nil

	case IntentSolution:
		sol, err := s.solveFor(ctx, sessionID, desc, audienceTag, cls.Budget, snap)
		if err != nil {
			return "生成方案失败，请稍后再试。", nil
		}
		return fmt.Sprintf("推荐标题：%s\n风格：%s｜预估CTR：%s\n%s",
			sol.Recommended.Candidate.Title, sol.Recommended.Candidate.Style,
			sol.Recommended.Report.Percentage, sol.Strategy), sol
	}
	return helpText, nil
}

// solveFor is Solve for an already extracted descriptor under the held
// session lock.
func (s *Service) solveFor(ctx context.Context, sessionID string, desc attributes.Descriptor, audienceTag, budget string, snap *preference.Snapshot) (Solution, error) {
	prof := s.pickAudience(audienceTag, snap)
	keywords := desc.TargetKeywords(s.cfg.Refine.KeywordLimit)
	sol := Solution{Descriptor: desc, Audience: prof.Tag, Budget: budget, Keywords: keywords}
	for i, style := range s.refiner.StyleOrder(desc.Category, prof.Tag, snap) {
		out := s.refine(ctx, TitleInput{Style: style, Audience: prof.Tag, SessionID: sessionID, Keywords: keywords}, desc, snap)
		sol.Candidates = append(sol.Candidates, out)
		if i == 0 || out.Report.Score > sol.Recommended.Report.Score {
			sol.Recommended = out
		}
	}
	if len(sol.Candidates) == 0 {
		return Solution{}, fmt.Errorf("no styles configured")
	}
	sol.Strategy = s.advisor.Suggest(desc.Category, prof.Tag, budget)
	return sol, nil
}

// productContext extracts the product from text, falling back to the most
// recent user turn that named one.
func (s *Service) productContext(text string, turns []conversation.Turn) attributes.Descriptor {
	desc := s.extractor.Extract(text)
	if desc.HasProduct() {
		return desc
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != conversation.RoleUser {
			continue
		}
		if d := s.extractor.Extract(turns[i].Text); d.HasProduct() {
			return d
		}
	}
	return desc
}

// #endregion respond
