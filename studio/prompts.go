package studio

import (
	"fmt"
	"strings"

	"github.com/BaSui01/brandforge/project"
)

// =============================================================================
// 🎭 系统指令
// =============================================================================

const (
	systemMarket     = "You are a world-class beauty brand consultant and market strategist. Provide deep, actionable market insights and unique brand positioning strategies."
	systemStory      = "You are a creative brand storyteller specializing in luxury beauty."
	systemFormula    = "You are a senior cosmetic chemist and formulation scientist. Provide professional, safe, and innovative cosmetic formulations."
	systemVisual     = "You are a world-class visual identity designer for luxury brands."
	systemPackaging  = "You are a luxury packaging designer."
	systemProduction = "You are a senior print production specialist and digital asset manager. You provide highly technical specifications for luxury beauty packaging, specifically focusing on how to structure editable PSD files for professional manufacturing."
	systemRefine     = "你是一位世界级的美妆品牌顾问。请根据用户的追问或补充要求，对当前内容进行优化、扩充或解答。你可以选择在原有内容基础上进行修改，或者以对话的形式补充新的见解。请保持专业、优雅且富有洞察力的语气。如果是补充内容，请确保与原有内容逻辑连贯。"
)

// strategySuffix 追加在策略类阶段的系统指令之后，要求表格与 chart-data 图表块
const strategySuffix = `

重要提示：
1. 请务必使用 Markdown 表格来展示分类数据、竞品对比、价位带分布等。
2. 如果涉及数值类数据（如市场份额、价格区间），请在回复末尾提供一个符合以下格式的 JSON 代码块，以便系统渲染图表：
` + "```chart-data" + `
{
  "type": "bar" | "pie" | "line",
  "title": "图表标题",
  "data": [
    { "name": "类别A", "value": 10 },
    { "name": "类别B", "value": 20 }
  ]
}
` + "```" + `
3. 确保分析深度专业，语气优雅且富有洞察力。`

func withStrategySuffix(system string) string {
	return system + strategySuffix
}

// =============================================================================
// ⏳ 占位与提示文案
// =============================================================================

const (
	placeholderMarket     = "正在分析市场动态..."
	placeholderStory      = "正在构思品牌故事..."
	placeholderFormula    = "正在研发配方..."
	placeholderVisual     = "正在设计视觉系统..."
	placeholderPackaging  = "正在设计包装方案..."
	placeholderProduction = "正在生成生产规范..."
	placeholderRefine     = "正在思考..."
	placeholderRefineSpec = "正在优化生产规范..."
	progressVideoPrepare  = "正在准备视频生成..."

	msgBriefIncomplete  = "请填写完整的品牌与市场信息"
	msgKeyRequired      = "视频生成需要选择 API Key"
	msgRefineEmpty      = "请输入追问或补充要求"
	msgRefineVideo      = "营销视频不支持追问优化"
	msgKeyEmpty         = "API Key 不能为空"
	msgReferenceInvalid = "参考图必须是 base64 编码的 data URL"
	msgReferenceExpired = "参考图已过期，请重新上传"
	concisePackagingTip = " (请注意：文字说明请言简意赅，字数限制在500字以内)"
)

// failureMessages 各阶段面向用户的失败提示
var failureMessages = map[project.Stage]string{
	project.StageMarketAnalysis:  "分析失败，请稍后重试",
	project.StageBrandStory:      "故事生成失败",
	project.StageFormulaDesign:   "配方设计失败",
	project.StageVisualIdentity:  "视觉设计失败",
	project.StagePackagingDesign: "包装生成失败",
	project.StageProductionFile:  "生产文件生成失败",
	project.StageMarketingVideo:  "视频生成失败",
}

const refineFailure = "优化失败，请稍后重试"

// =============================================================================
// 📝 提示词构建
// =============================================================================

// plan 描述一次阶段运行需要的全部输入
type plan struct {
	prompt      string
	system      string
	placeholder string

	// 图片生成（可选）
	imagePrompt string
	imageRef    string
	withImage   bool
	// 没有图片返回时保留旧图（否则清除）
	keepImageOnEmpty bool
}

func extra(custom string) string {
	if custom = strings.TrimSpace(custom); custom == "" {
		return ""
	}
	return "额外要求: " + custom
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func marketPlan(p project.Project, custom string) plan {
	b := p.Brief
	var sb strings.Builder
	fmt.Fprintf(&sb, "为品牌 \"%s\" 进行全方位的市场分析。\n\n", b.Name)
	sb.WriteString("【输入信息】\n")
	fmt.Fprintf(&sb, "- 目标客群: %s\n", b.TargetAudience)
	fmt.Fprintf(&sb, "- 售卖渠道: %s\n", b.SalesChannels)
	fmt.Fprintf(&sb, "- 售卖地区: %s\n", b.SalesRegions)
	fmt.Fprintf(&sb, "- 产品解决的痛点: %s\n", b.PainPoints)
	fmt.Fprintf(&sb, "- 核心价值: %s\n", b.CoreValues)
	if e := extra(custom); e != "" {
		fmt.Fprintf(&sb, "- %s\n", e)
	}
	sb.WriteString(`
【分析要求】
1. 竞品调研：分析当前市场上的主要竞争对手及其优劣势。
2. 市场份额：预估或引用行业数据说明当前市场份额分布。
3. 竞品品牌矩阵：通过表格或分类展示竞品的品牌定位矩阵。
4. 竞品价位带：详细列出竞品的价格区间分布。
5. 深度分析上述维度的行业现状与趋势。
6. 提供品牌定位的差异化建议（USP）。
7. 建议最适合的品牌调性与市场切入点。

请务必使用 Markdown 表格展示数据，并在文末提供 chart-data JSON 块用于可视化。`)

	return plan{
		prompt:      sb.String(),
		system:      withStrategySuffix(systemMarket),
		placeholder: placeholderMarket,
	}
}

func storyPlan(p project.Project, custom string) plan {
	b := p.Brief
	background := fmt.Sprintf("品牌名: %s, 受众: %s", b.Name, b.TargetAudience)
	if last := p.Stage(project.StageMarketAnalysis).LastMessage(); last != "" {
		background = "基于市场分析: " + last
	}
	return plan{
		prompt: fmt.Sprintf("基于以下背景，为品牌 \"%s\" 撰写品牌故事和slogan。背景: %s。%s。要求：情感共鸣强，符合美妆行业调性。",
			b.Name, background, extra(custom)),
		system:      withStrategySuffix(systemStory),
		placeholder: placeholderStory,
	}
}

func formulaPlan(p project.Project, custom string) plan {
	b := p.Brief
	background := fmt.Sprintf("品牌: %s, 痛点: %s, 核心价值: %s", b.Name, b.PainPoints, b.CoreValues)
	prompt := fmt.Sprintf(`为品牌 "%s" 设计专业化妆品配方。

【背景信息】
- 品牌背景: %s
- 配方需求描述: %s

【设计要求】
1. 提供详细的成分表（INCI名称）。
2. 说明核心活性成分及其功效原理。
3. 描述产品的质地、肤感及使用体验。
4. 提供生产工艺简述及注意事项。
5. 确保配方符合现代美妆趋势（如纯净美容、高效修护等）。`,
		b.Name, background, orDefault(strings.TrimSpace(custom), "根据品牌调性设计一款明星产品配方"))

	return plan{
		prompt:      prompt,
		system:      systemFormula,
		placeholder: placeholderFormula,
	}
}

func visualPlan(p project.Project, custom string) plan {
	b := p.Brief
	background := fmt.Sprintf("品牌名: %s, 受众: %s", b.Name, b.TargetAudience)
	if last := p.Stage(project.StageBrandStory).LastMessage(); last != "" {
		background = "基于品牌故事: " + last
	}
	custom = strings.TrimSpace(custom)
	return plan{
		prompt: fmt.Sprintf("为品牌 \"%s\" 设计视觉识别系统(VI)。背景: %s。%s。请包含：配色方案、字体建议、视觉风格描述。",
			b.Name, background, extra(custom)),
		system:      withStrategySuffix(systemVisual),
		placeholder: placeholderVisual,
		imagePrompt: strings.TrimSpace(fmt.Sprintf("A luxury beauty brand visual identity moodboard for \"%s\". Target Audience: %s. Style: Elegant, high-end, futuristic. Include color swatches, sophisticated typography, and abstract beauty textures. Pink-purple aesthetic. %s",
			b.Name, b.TargetAudience, custom)),
		withImage: true,
	}
}

func packagingPlan(p project.Project, custom string) plan {
	b := p.Brief
	var background string
	if last := p.Stage(project.StageVisualIdentity).LastMessage(); last != "" {
		background = "视觉风格参考: " + last
	} else {
		tone := "现代高端"
		if msgs := p.Stage(project.StageBrandStory).Messages; len(msgs) > 0 && msgs[0].Content != "" {
			tone = msgs[0].Content
		}
		background = fmt.Sprintf("品牌名: %s, 调性: %s", b.Name, tone)
	}
	custom = strings.TrimSpace(custom)
	return plan{
		prompt: fmt.Sprintf("为品牌 \"%s\" 描述其高端包装设计方案。背景: %s。%s (要求：文字说明言简意赅，字数限制在500字以内)",
			b.Name, background, custom),
		system:      withStrategySuffix(systemPackaging),
		placeholder: placeholderPackaging,
		imagePrompt: fmt.Sprintf("品牌 \"%s\" 的高端美妆包装。%s。%s。产品类型：护肤品精华液。",
			b.Name, background, extra(custom)),
		imageRef:         p.Reference(project.StagePackagingDesign),
		withImage:        true,
		keepImageOnEmpty: true,
	}
}

func productionPlan(p project.Project, _ string) plan {
	b := p.Brief
	visual := orDefault(p.Stage(project.StageVisualIdentity).LastMessage(), "标准高端美妆视觉系统")
	prompt := fmt.Sprintf(`为品牌 "%s" 生成详细的印刷生产技术规范及【Adobe软件技术图纸操作指南】。视觉识别系统参考: %s。
请包含以下核心板块：
1. 印刷参数：CMYK色值、Pantone色号、纸张材质建议、特殊工艺（烫金、UV、击凸）。
2. Adobe Illustrator/Photoshop 绘图指南：
- 详细说明如何根据生成的刀版图（Dieline）在软件中建立图层。
- 标注裁切线（Trim）、出血位（Bleed）、折线（Fold）的颜色与线宽规范。
- 智能对象与链接文件的管理建议。
3. 生产交付标准：导出格式（PDF/X-4）、分辨率要求、色彩配置文件。
请使用严谨的工业级技术文档格式。`, b.Name, visual)

	return plan{
		prompt:      prompt,
		system:      systemProduction,
		placeholder: placeholderProduction,
		imagePrompt: fmt.Sprintf("A professional technical packaging dieline blueprint for a beauty product box (serum bottle size). Flat layout, white background, blue and red technical lines for cutting and folding. Include measurements, scale bars, and crop marks. High contrast, clean vector style, suitable for Adobe Illustrator reference. Brand: %s.", b.Name),
		withImage:   true,
	}
}

// videoPrompt 营销视频提示词
func videoPrompt(p project.Project, custom string) string {
	story := orDefault(p.Stage(project.StageBrandStory).LastMessage(), "优雅高端")
	visual := orDefault(p.Stage(project.StageVisualIdentity).LastMessage(), "粉紫渐变科技感")
	background := fmt.Sprintf("品牌故事: %s, 视觉参考: %s", story, visual)
	return fmt.Sprintf("品牌 \"%s\" 的产品推广视频。%s。%s", p.Brief.Name, background, extra(custom))
}

var plans = map[project.Stage]func(project.Project, string) plan{
	project.StageMarketAnalysis:  marketPlan,
	project.StageBrandStory:      storyPlan,
	project.StageFormulaDesign:   formulaPlan,
	project.StageVisualIdentity:  visualPlan,
	project.StagePackagingDesign: packagingPlan,
	project.StageProductionFile:  productionPlan,
}

// =============================================================================
// 🔁 追问优化
// =============================================================================

// brandContext 追问时附带的品牌背景
func brandContext(b project.Brief) string {
	return fmt.Sprintf("Brand: %s, Audience: %s, Channels: %s, Regions: %s, Pain Points: %s",
		b.Name, b.TargetAudience, b.SalesChannels, b.SalesRegions, b.PainPoints)
}

// transcript 把对话整理为 "User: "/"Assistant: " 前缀、空行分隔的文本
func transcript(msgs []project.ChatMessage) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		prefix := "Assistant: "
		if m.Role == project.RoleUser {
			prefix = "User: "
		}
		parts = append(parts, prefix+m.Content)
	}
	return strings.Join(parts, "\n\n")
}

func refinePrompt(current, request, background string) string {
	return fmt.Sprintf("【当前内容】\n%s\n\n【用户追问/补充要求】\n%s\n\n【品牌背景信息】\n%s", current, request, background)
}

func refineImagePrompt(stage project.Stage, name, request string) string {
	switch stage {
	case project.StageVisualIdentity:
		return fmt.Sprintf("Update the visual identity moodboard for \"%s\" based on: %s. Maintain luxury beauty aesthetic.", name, request)
	case project.StagePackagingDesign:
		return fmt.Sprintf("Update packaging design for \"%s\" based on: %s. High-end beauty product.", name, request)
	}
	return ""
}
