package generate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/czhharrison/MerchantChat/internal/scoring"
)

// #region prompt

// BuildPrompt renders the collaborator prompt for one request.
func BuildPrompt(req Request, style string) string {
	var b strings.Builder
	d := req.Descriptor

	b.WriteString("你是一名资深电商运营，请为以下商品撰写一个商品标题。\n\n")
	fmt.Fprintf(&b, "商品描述：%s\n", d.Raw)
	fmt.Fprintf(&b, "类目：%s", d.Category)
	if d.Product != "" {
		fmt.Fprintf(&b, "；品名：%s", d.Product)
	}
	if d.Color != "" {
		fmt.Fprintf(&b, "；颜色：%s", d.Color)
	}
	if d.Season != "" {
		fmt.Fprintf(&b, "；季节：%s", d.Season)
	}
	if d.Price != nil {
		fmt.Fprintf(&b, "；价格：%s元（%s）", strconv.FormatFloat(*d.Price, 'f', -1, 64), d.PriceTier)
	}
	b.WriteString("\n")
	if len(d.Features) > 0 {
		fmt.Fprintf(&b, "卖点：%s\n", strings.Join(d.Features, "、"))
	}

	a := req.Audience
	fmt.Fprintf(&b, "\n目标人群：%s（%s岁）\n", a.Tag, a.AgeRange)
	if a.Traits != "" {
		fmt.Fprintf(&b, "人群特征：%s\n", a.Traits)
	}
	if a.Tone != "" {
		fmt.Fprintf(&b, "语气：%s\n", a.Tone)
	}
	if len(a.Vocabulary) > 0 {
		fmt.Fprintf(&b, "常用词汇：%s\n", strings.Join(a.Vocabulary, "、"))
	}
	fmt.Fprintf(&b, "标题风格：%s\n", style)

	if req.Hints != nil {
		if adv := req.Hints.Advisory(); adv != "" {
			fmt.Fprintf(&b, "商家偏好：%s\n", adv)
		}
	}

	if rv := req.Revision; rv != nil {
		fmt.Fprintf(&b, "\n上一版标题：%s（评分 %s）\n", rv.Previous, scoring.Percentage(rv.Report.Score))
		if len(rv.Report.Issues) > 0 {
			fmt.Fprintf(&b, "存在问题：%s\n", strings.Join(rv.Report.Issues, "；"))
		}
		if len(rv.Report.Recommendations) > 0 {
			fmt.Fprintf(&b, "优化建议：%s\n", strings.Join(rv.Report.Recommendations, "；"))
		}
		b.WriteString("请根据以上问题改写标题。\n")
	}

	b.WriteString("\n要求：标题长度20-30字，只输出一个标题，不要解释。")
	return b.String()
}

// #endregion prompt

// #region clean

var (
	bulletPrefixRe    = regexp.MustCompile(`^\s*(?:[-*•]|[0-9]{1,2}[\.)])\s*`)
	lineLabelPrefixRe = regexp.MustCompile(`(?i)^(title|标题|推荐标题|优化后标题|新标题)\s*[:：]\s*`)
)

var quotePairs = [][2]string{
	{`"`, `"`}, {"“", "”"}, {"「", "」"}, {"『", "』"}, {"'", "'"},
}

// CleanTitle reduces raw collaborator output to a single title line. It
// returns "" when nothing usable is left.
func CleanTitle(text string, maxRunes int) string {
	line := firstLine(normalizeModelText(text))
	line = bulletPrefixRe.ReplaceAllString(line, "")
	line = lineLabelPrefixRe.ReplaceAllString(line, "")
	line = strings.TrimSpace(line)
	for _, q := range quotePairs {
		if len(line) >= len(q[0])+len(q[1]) && strings.HasPrefix(line, q[0]) && strings.HasSuffix(line, q[1]) {
			line = strings.TrimSpace(line[len(q[0]) : len(line)-len(q[1])])
			break
		}
	}
	if maxRunes > 1 && runeLen(line) > maxRunes {
		r := []rune(line)
		line = string(r[:maxRunes-1]) + "…"
	}
	return line
}

func normalizeModelText(text string) string {
	t := strings.TrimSpace(text)
	t = strings.ReplaceAll(t, "\r\n", "\n")
	t = strings.ReplaceAll(t, "\r", "\n")
	if !strings.Contains(t, "\n") && strings.Contains(t, `\n`) {
		t = strings.ReplaceAll(t, `\n`, "\n")
	}
	t = strings.ReplaceAll(t, "<br/>", "\n")
	t = strings.ReplaceAll(t, "<br />", "\n")
	t = strings.ReplaceAll(t, "<br>", "\n")
	if strings.HasPrefix(t, "```") {
		t = strings.TrimSpace(strings.TrimPrefix(t, "```"))
		if strings.HasPrefix(strings.ToLower(t), "text") {
			t = strings.TrimSpace(t[4:])
		}
		if i := strings.LastIndex(t, "```"); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
	}
	return t
}

func firstLine(text string) string {
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			return ln
		}
	}
	return ""
}

// #endregion clean
