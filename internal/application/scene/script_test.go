package scene

import (
	"testing"

	apperrors "z-scene-ai-api/pkg/errors"
)

func validOpeningScript() string {
	return `{
		"narrative_text": "A young explorer finds a glowing cave.",
		"image_prompts": ["p1", "p2", "p3"],
		"video_generation_prompt": "explorer enters a glowing cave",
		"narration": "The cave glows. She steps inside.",
		"actions": ["Enter the cave", "Walk away"],
		"core_details": "young explorer, red jacket, digital painting"
	}`
}

func TestParseSceneScript(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		opening bool
		wantErr bool
	}{
		{
			name:    "valid opening",
			raw:     validOpeningScript(),
			opening: true,
		},
		{
			name: "valid continuation",
			raw: `{
				"narrative_text": "She steps deeper into the dark.",
				"image_prompts": ["p1", "p2"],
				"video_generation_prompt": "explorer walks deeper",
				"narration": "Darkness swallows her.",
				"actions": ["Light a torch", "Turn back"],
				"core_details": "young explorer, red jacket"
			}`,
			opening: false,
		},
		{
			name:    "empty output",
			raw:     "",
			opening: true,
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     "the model refused",
			opening: true,
			wantErr: true,
		},
		{
			name: "opening with two prompts",
			raw: `{
				"narrative_text": "x",
				"image_prompts": ["p1", "p2"],
				"video_generation_prompt": "v",
				"narration": "n",
				"actions": ["a", "b"],
				"core_details": "c"
			}`,
			opening: true,
			wantErr: true,
		},
		{
			name: "continuation with three prompts",
			raw: `{
				"narrative_text": "x",
				"image_prompts": ["p1", "p2", "p3"],
				"video_generation_prompt": "v",
				"narration": "n",
				"actions": ["a", "b"],
				"core_details": "c"
			}`,
			opening: false,
			wantErr: true,
		},
		{
			name: "opening without core details",
			raw: `{
				"narrative_text": "x",
				"image_prompts": ["p1", "p2", "p3"],
				"video_generation_prompt": "v",
				"narration": "n",
				"actions": ["a", "b"]
			}`,
			opening: true,
			wantErr: true,
		},
		{
			name: "continuation without core details keeps old template",
			raw: `{
				"narrative_text": "x",
				"image_prompts": ["p1", "p2"],
				"video_generation_prompt": "v",
				"narration": "n",
				"actions": ["a", "b"]
			}`,
			opening: false,
		},
		{
			name: "missing narration",
			raw: `{
				"narrative_text": "x",
				"image_prompts": ["p1", "p2", "p3"],
				"video_generation_prompt": "v",
				"actions": ["a", "b"],
				"core_details": "c"
			}`,
			opening: true,
			wantErr: true,
		},
		{
			name: "single action",
			raw: `{
				"narrative_text": "x",
				"image_prompts": ["p1", "p2", "p3"],
				"video_generation_prompt": "v",
				"narration": "n",
				"actions": ["a"],
				"core_details": "c"
			}`,
			opening: true,
			wantErr: true,
		},
		{
			name: "blank image prompt",
			raw: `{
				"narrative_text": "x",
				"image_prompts": ["p1", "  ", "p3"],
				"video_generation_prompt": "v",
				"narration": "n",
				"actions": ["a", "b"],
				"core_details": "c"
			}`,
			opening: true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := parseSceneScript(tt.raw, tt.opening)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				appErr := apperrors.AsAppError(err)
				if appErr.Code != apperrors.CodeScriptFailure {
					t.Errorf("error code = %s, want %s", appErr.Code, apperrors.CodeScriptFailure)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if script == nil {
				t.Fatal("script is nil")
			}
			if len(script.Actions) != 2 {
				t.Errorf("actions = %d, want 2", len(script.Actions))
			}
		})
	}
}
