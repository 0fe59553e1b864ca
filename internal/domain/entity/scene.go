package entity

// SceneResult 一个场景周期中暴露给调用方的部分
type SceneResult struct {
	Video          string   `json:"video"`
	NarrationAudio string   `json:"narration_audio"`
	NarrationText  string   `json:"narration_text"`
	Actions        []string `json:"actions"`
}

// SceneOutcome 一个完整场景周期的产出
//
// Images 固定 3 张，按播放顺序排列；单张生成失败的位置为空串占位。
// NarrationAudio 为 base64 编码的音频字节。
type SceneOutcome struct {
	NarrativeText  string   `json:"narrative_text"`
	Images         []string `json:"images"`
	VideoURL       string   `json:"video_url"`
	NarrationAudio string   `json:"narration_audio"`
	NarrationText  string   `json:"narration_text"`
	Actions        []string `json:"actions"`
	CoreDetails    string   `json:"core_details"`

	AnchorImagePrompt string `json:"anchor_image_prompt"`
	AnchorImageURL    string `json:"anchor_image_url"`
}
