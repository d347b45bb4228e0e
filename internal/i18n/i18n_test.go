package i18n

import (
	"context"
	"testing"
)

func TestTranslations(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tests := []struct {
		name  string
		lang  string
		msgID string
		want  string
	}{
		{"english pending", "en", "ScorePending", "Pending"},
		{"english not given", "en", "FeedbackNotGiven", "Not given"},
		{"russian pending", "ru", "ScorePending", "Ожидает проверки"},
		{"russian not given", "ru", "FeedbackNotGiven", "Не указано"},
		{"unknown language falls back to default", "de", "ScorePending", "Pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithLocalizer(context.Background(), Localizer(tt.lang))
			if got := T(ctx, tt.msgID); got != tt.want {
				t.Errorf("T(%q) = %q, want %q", tt.msgID, got, tt.want)
			}
		})
	}
}

func TestUnknownMessageReturnsID(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := context.Background()
	if got := T(ctx, "NoSuchMessage"); got != "NoSuchMessage" {
		t.Errorf("expected message ID fallback, got %q", got)
	}
}

func TestAcceptLanguageHeaderValue(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Full header values should negotiate to the best match.
	ctx := WithLocalizer(context.Background(), Localizer("ru-RU,ru;q=0.9,en;q=0.8"))
	if got := T(ctx, "ScorePending"); got != "Ожидает проверки" {
		t.Errorf("expected russian translation, got %q", got)
	}
}

func TestInitRejectsBadLanguage(t *testing.T) {
	if err := Init("no-such-lang-tag-!!"); err == nil {
		t.Error("expected error for invalid language tag")
	}
}
