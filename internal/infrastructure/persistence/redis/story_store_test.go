package redis

import (
	"testing"
	"time"

	"z-scene-ai-api/internal/config"
)

// 周期锁 TTL 必须跟随周期超时而不是记录 TTL：
// 进程崩溃后故事最多被锁一个周期多一点，而不是整个记录生命周期。
func TestNewStoryStoreCycleLockTTL(t *testing.T) {
	cfg := &config.StoryStoreConfig{
		TTL:       24 * time.Hour,
		KeyPrefix: "story:",
	}

	tests := []struct {
		name         string
		cycleTimeout time.Duration
		want         time.Duration
	}{
		{
			name:         "derived from cycle timeout plus margin",
			cycleTimeout: 10 * time.Minute,
			want:         10*time.Minute + cycleLockMargin,
		},
		{
			name:         "short cycles stay short",
			cycleTimeout: 30 * time.Second,
			want:         30*time.Second + cycleLockMargin,
		},
		{
			name:         "zero falls back to default cycle length",
			cycleTimeout: 0,
			want:         10*time.Minute + cycleLockMargin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStoryStore(nil, cfg, tt.cycleTimeout)
			if s.cycleTTL != tt.want {
				t.Errorf("cycleTTL = %v, want %v", s.cycleTTL, tt.want)
			}
			if s.cycleTTL >= s.ttl {
				t.Errorf("cycleTTL %v should be far below record ttl %v", s.cycleTTL, s.ttl)
			}
		})
	}
}
