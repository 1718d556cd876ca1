package discernment

import (
	"strings"
	"testing"
)

// --- テスト ---

func TestBuildPrompt_Movie(t *testing.T) {
	prompt := BuildPrompt("Inception", "movie", "2010", "")

	wantPrefix := `You are a Christian media discernment expert. Analyze "Inception" (a movie, released 2010)`
	if !strings.HasPrefix(prompt, wantPrefix) {
		t.Errorf("prompt = %q..., want prefix %q", prompt[:min(len(prompt), 120)], wantPrefix)
	}

	for _, want := range []string{
		`"discernmentScore"`,
		`"faithAnalysis"`,
		`"tags"`,
		`"verseText"`,
		`"verseReference"`,
		`"alternatives"`,
		"Return your answer as **valid JSON** ONLY",
		"Scoring guide:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt does not contain %q", want)
		}
	}
}

func TestBuildPrompt_BookUsesPublishedVocabulary(t *testing.T) {
	prompt := BuildPrompt("The Hobbit", "book", "1937", "A hobbit goes on an adventure.")

	if !strings.Contains(prompt, "(a book, published 1937)") {
		t.Errorf("book prompt should say published, got: %q", prompt[:min(len(prompt), 160)])
	}
	if !strings.Contains(prompt, "Synopsis: A hobbit goes on an adventure.") {
		t.Error("book prompt should label overview as Synopsis")
	}
	if strings.Contains(prompt, "Plot Summary:") {
		t.Error("book prompt should not use Plot Summary label")
	}
}

func TestBuildPrompt_MovieOverviewUsesPlotSummary(t *testing.T) {
	prompt := BuildPrompt("Inception", "movie", "2010", "A thief enters dreams.")

	if !strings.Contains(prompt, "Plot Summary: A thief enters dreams.") {
		t.Error("movie prompt should label overview as Plot Summary")
	}
}

func TestBuildPrompt_EmptyMediaTypeDefaultsToMovie(t *testing.T) {
	prompt := BuildPrompt("Inception", "", "2010", "")

	if !strings.Contains(prompt, "(a movie, released 2010)") {
		t.Errorf("empty media type should default to movie, got: %q", prompt[:min(len(prompt), 160)])
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	first := BuildPrompt("Inception", "movie", "2010", "A thief enters dreams.")
	second := BuildPrompt("Inception", "movie", "2010", "A thief enters dreams.")

	if first != second {
		t.Error("identical inputs should produce identical prompts")
	}
}

func TestBuildPrompt_NoLeadingOrTrailingWhitespace(t *testing.T) {
	prompt := BuildPrompt("Inception", "movie", "2010", "")

	if prompt != strings.TrimSpace(prompt) {
		t.Error("prompt should be trimmed")
	}
}
