package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionDraftClone(t *testing.T) {
	d := &SectionDraft{
		SectionID:  "1-1",
		Slots:      []SlotText{{Name: "assertion", Text: "a"}, {Name: "justification", Text: "b"}},
		Iterations: 2,
		State:      StateValidated,
	}

	c := d.Clone()
	c.Slots[0].Text = "changed"
	c.Iterations = 3

	assert.Equal(t, "a", d.Slots[0].Text, "clone must not share slot storage")
	assert.Equal(t, 2, d.Iterations)
}

func TestSectionDraftText(t *testing.T) {
	d := &SectionDraft{Slots: []SlotText{{Text: "一文目。"}, {Text: "二文目。"}}}
	assert.Equal(t, "一文目。\n二文目。", d.Text())
}

func TestDraftStateTerminal(t *testing.T) {
	assert.True(t, StateAccepted.Terminal())
	assert.True(t, StateExhausted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateDraft.Terminal())
	assert.False(t, StateValidated.Terminal())
	assert.False(t, StateRepairing.Terminal())
}

func TestGenerationRunAcceptedTexts(t *testing.T) {
	run := &GenerationRun{
		Sections: []*SectionResult{
			{SectionID: "1-1", State: StateAccepted, Draft: &SectionDraft{Slots: []SlotText{{Text: "本文"}}}},
			{SectionID: "1-2", State: StateExhausted, Draft: &SectionDraft{Slots: []SlotText{{Text: "未達"}}}},
			{SectionID: "1-3", State: StateFailed},
		},
	}

	texts := run.AcceptedTexts()
	require.Len(t, texts, 2, "failed sections contribute no text")
	assert.Equal(t, "本文", texts["1-1"])
	assert.Equal(t, "未達", texts["1-2"])

	require.NotNil(t, run.Section("1-2"))
	assert.Nil(t, run.Section("9-9"))
}
