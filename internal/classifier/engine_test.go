package classifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/ports"
	"TruthFilter/internal/ports/portstest"
)

var testModels = Models{Fast: "fast", Smart: "smart"}

func newEngine(respond func(ports.GenerateRequest) (ports.Generation, error)) (*Engine, *portstest.LanguageModel) {
	model := &portstest.LanguageModel{Respond: respond}
	e := NewEngine(model, testModels, nil)
	e.now = func() time.Time { return time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC) }
	return e, model
}

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want domain.Verdict
	}{
		{"true marker", "[VERDICT: TRUE] water boils at 100C", domain.VerdictTrue},
		{"false marker", "[VERDICT: FALSE] hoax", domain.VerdictFalse},
		{"mixed marker", "[VERDICT: MIXED] personal story", domain.VerdictMixed},
		{"true marker beats false word", "[VERDICT: TRUE] the rumor it is false was wrong", domain.VerdictTrue},
		{"keyword false", "This claim is false.", domain.VerdictFalse},
		{"keyword true", "This is true according to sources.", domain.VerdictTrue},
		{"not true", "This is NOT TRUE at all", domain.VerdictMixed},
		{"nothing", "I cannot tell.", domain.VerdictMixed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseVerdict(tt.text); got != tt.want {
				t.Fatalf("ParseVerdict(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestAnalyzeFactualPost(t *testing.T) {
	t.Parallel()

	e, model := newEngine(func(req ports.GenerateRequest) (ports.Generation, error) {
		if req.Model == "fast" {
			return ports.Generation{Text: "YES"}, nil
		}
		if !req.Search {
			t.Errorf("audit must enable search")
		}
		return ports.Generation{Text: "[VERDICT: TRUE] Standard physics.", Grounded: true}, nil
	})

	res := e.Analyze(context.Background(), "Water boils at 100°C at sea level", "")
	if res.Verdict != domain.VerdictTrue || !res.IsRelevant {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.HasSuffix(res.Summary, "(Verified via Google Search)") {
		t.Fatalf("expected search note, got %q", res.Summary)
	}
	if model.Calls("fast") != 1 || model.Calls("smart") != 1 {
		t.Fatalf("expected one call per stage")
	}
	if !model.PromptContains("Current Date: 2025-03-09") {
		t.Fatalf("audit prompt must carry the current date")
	}
}

func TestAnalyzeGreetingIsNoise(t *testing.T) {
	t.Parallel()

	e, model := newEngine(func(req ports.GenerateRequest) (ports.Generation, error) {
		return ports.Generation{Text: "NO"}, nil
	})

	res := e.Analyze(context.Background(), "gm", "")
	if res.Verdict != domain.VerdictNoise || res.IsRelevant {
		t.Fatalf("unexpected result %+v", res)
	}
	if model.Calls("smart") != 0 {
		t.Fatalf("stage two must not run for noise")
	}
}

func TestAnalyzeStageOneFailsOpen(t *testing.T) {
	t.Parallel()

	e, model := newEngine(func(req ports.GenerateRequest) (ports.Generation, error) {
		if req.Model == "fast" {
			return ports.Generation{}, errors.New("quota")
		}
		return ports.Generation{Text: "[VERDICT: MIXED] unverifiable"}, nil
	})

	res := e.Analyze(context.Background(), "my cousin says the bridge is closing", "")
	if res.Verdict != domain.VerdictMixed || !res.IsRelevant {
		t.Fatalf("unexpected result %+v", res)
	}
	if model.Calls("smart") != 1 {
		t.Fatalf("stage two must run after stage one failure")
	}
}

func TestAnalyzeStageOneAnswers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		answer   string
		relevant bool
	}{
		{"maybe", true},
		{"UNKNOWN", true},
		{"I cannot determine this.", true},
		{"Not sure", true},
		{"N/A, cannot tell", true},
		{"YES", true},
		{"No, but yes it is checkable", true},
		{"NO.", false},
		{"no", false},
		{"  NO - opinion only", false},
	}
	for _, tc := range cases {
		t.Run(tc.answer, func(t *testing.T) {
			t.Parallel()

			e, model := newEngine(func(req ports.GenerateRequest) (ports.Generation, error) {
				if req.Model == "fast" {
					return ports.Generation{Text: tc.answer}, nil
				}
				return ports.Generation{Text: "[VERDICT: MIXED]"}, nil
			})
			res := e.Analyze(context.Background(), "Scientists confirm water boils at 100C", "")

			if res.IsRelevant != tc.relevant {
				t.Fatalf("answer %q: relevant=%v, want %v", tc.answer, res.IsRelevant, tc.relevant)
			}
			wantSmart := 0
			if tc.relevant {
				wantSmart = 1
			}
			if got := model.Calls("smart"); got != wantSmart {
				t.Fatalf("answer %q: smart calls %d, want %d", tc.answer, got, wantSmart)
			}
			if !tc.relevant && res.Verdict != domain.VerdictNoise {
				t.Fatalf("answer %q: verdict %s, want NOISE", tc.answer, res.Verdict)
			}
		})
	}
}

func TestAnalyzeAuditFailure(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(func(req ports.GenerateRequest) (ports.Generation, error) {
		if req.Model == "fast" {
			return ports.Generation{Text: "YES"}, nil
		}
		return ports.Generation{}, errors.New("boom")
	})

	res := e.Analyze(context.Background(), "claim", "")
	if res.Verdict != domain.VerdictMixed || !res.IsRelevant {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.HasPrefix(res.Summary, "Error:") {
		t.Fatalf("summary must start with Error:, got %q", res.Summary)
	}
}

func TestAnalyzeWithImageSkipsStageOne(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "x_1.jpg")
	if err := os.WriteFile(path, []byte("\xff\xd8\xff\xe0fakejpeg"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	var gotImage *ports.Image
	e, model := newEngine(func(req ports.GenerateRequest) (ports.Generation, error) {
		gotImage = req.Image
		return ports.Generation{Text: "[VERDICT: FALSE] doctored"}, nil
	})

	res := e.Analyze(context.Background(), "look", path)
	if res.Verdict != domain.VerdictFalse {
		t.Fatalf("unexpected verdict %s", res.Verdict)
	}
	if model.Calls("fast") != 0 {
		t.Fatalf("stage one must be skipped when an image is present")
	}
	if gotImage == nil || gotImage.MIMEType != "image/jpeg" {
		t.Fatalf("expected jpeg image part, got %+v", gotImage)
	}
	if !model.PromptContains("VISUAL EVIDENCE EXTRACTION") {
		t.Fatalf("expected visual instructions")
	}
}

func TestAnalyzeMissingImageAuditsText(t *testing.T) {
	t.Parallel()

	e, model := newEngine(func(req ports.GenerateRequest) (ports.Generation, error) {
		if req.Image != nil {
			t.Errorf("missing file must not produce an image part")
		}
		return ports.Generation{Text: ""}, nil
	})

	res := e.Analyze(context.Background(), "text", filepath.Join(t.TempDir(), "absent.jpg"))
	if res.Summary != "No response." || res.Verdict != domain.VerdictMixed {
		t.Fatalf("unexpected result %+v", res)
	}
	if !model.PromptContains("CLAIM EXTRACTION") {
		t.Fatalf("expected text-only instructions")
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	e, model := newEngine(func(req ports.GenerateRequest) (ports.Generation, error) {
		return ports.Generation{Text: "# Briefing"}, nil
	})

	if got := e.Summarize(context.Background(), nil); got != "No content to summarize." {
		t.Fatalf("unexpected empty summary %q", got)
	}
	if len(model.Requests) != 0 {
		t.Fatalf("empty input must not call the model")
	}

	got := e.Summarize(context.Background(), []string{"[FALSE] [x] moon is cheese (Src: N/A)"})
	if got != "# Briefing" {
		t.Fatalf("unexpected summary %q", got)
	}
	if !model.PromptContains("Misinformation Watch") || !model.PromptContains("moon is cheese") {
		t.Fatalf("prompt missing sections or items")
	}
}

func TestAnswerQuestion(t *testing.T) {
	t.Parallel()

	e, model := newEngine(func(req ports.GenerateRequest) (ports.Generation, error) {
		return ports.Generation{}, errors.New("offline")
	})
	if got := e.AnswerQuestion(context.Background(), "ctx", "why?"); got != "offline" {
		t.Fatalf("unexpected answer %q", got)
	}
	if !model.PromptContains("Context:\nctx\n\nQuestion: why?") {
		t.Fatalf("unexpected prompt layout")
	}
}
