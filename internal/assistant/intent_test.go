package assistant

import (
	"testing"
)

var testStyles = []string{"爆款", "简约", "高端"}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name       string
		prompt     string
		wantIntent Intent
		wantStyle  string
	}{
		{"title", "帮我为粉色连衣裙生成一个爆款风格的标题", IntentTitle, "爆款"},
		{"title-english", "write a title for my phone case", IntentTitle, ""},
		{"score", "评估一下这个标题的CTR", IntentScore, ""},
		{"score-lower", "ctr怎么样", IntentScore, ""},
		{"competitor", "分析竞品标题「韩版碎花连衣裙」", IntentCompetitor, ""},
		{"strategy", "数码产品给学生怎么推广", IntentStrategy, ""},
		{"solution", "给我一套完整方案，商品是高端真丝连衣裙", IntentSolution, "高端"},
		{"chat", "你好", IntentChat, ""},
		{"earliest-style", "简约一点，不要爆款标题", IntentTitle, "简约"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyIntent(tt.prompt, testStyles)
			if got.Intent != tt.wantIntent {
				t.Errorf("intent: got %q, want %q", got.Intent, tt.wantIntent)
			}
			if got.Style != tt.wantStyle {
				t.Errorf("style: got %q, want %q", got.Style, tt.wantStyle)
			}
		})
	}
}

func TestClassifyIntent_FollowUpInherits(t *testing.T) {
	prev := Classification{Intent: IntentTitle, Style: "简约"}

	got := ClassifyIntent("再来一个", testStyles, prev)
	if got.Intent != IntentTitle || got.Style != "简约" {
		t.Errorf("follow-up: got %+v", got)
	}

	got = ClassifyIntent("换成高端的", testStyles, prev)
	if got.Intent != IntentTitle || got.Style != "高端" {
		t.Errorf("follow-up with style: got %+v", got)
	}

	got = ClassifyIntent("再见，今天就到这里吧谢谢你的帮助", testStyles, prev)
	if got.Intent != IntentChat {
		t.Errorf("long turn should not inherit: got %+v", got)
	}

	got = ClassifyIntent("再来一个", testStyles, Classification{Intent: IntentChat})
	if got.Intent != IntentChat {
		t.Errorf("chat should not propagate: got %+v", got)
	}
}

func TestClassifyIntent_Extraction(t *testing.T) {
	tests := []struct {
		prompt     string
		wantQuoted string
		wantBudget string
	}{
		{"评估标题：【爆款】粉色连衣裙", "【爆款】粉色连衣裙", ""},
		{"分析竞品“韩版碎花连衣裙”", "韩版碎花连衣裙", ""},
		{"服装推广策略，预算低", "", "低"},
		{"高预算的投放策略", "", "高"},
		{"预算：中等，给个营销策略", "中等，给个营销策略", "中等"},
	}
	for _, tt := range tests {
		got := ClassifyIntent(tt.prompt, testStyles)
		if got.Quoted != tt.wantQuoted {
			t.Errorf("%s: quoted got %q, want %q", tt.prompt, got.Quoted, tt.wantQuoted)
		}
		if got.Budget != tt.wantBudget {
			t.Errorf("%s: budget got %q, want %q", tt.prompt, got.Budget, tt.wantBudget)
		}
	}
}
