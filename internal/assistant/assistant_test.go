package assistant

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"ecoQuestAPI/internal/types/envdata"
	"ecoQuestAPI/internal/types/mission"
	"ecoQuestAPI/internal/types/profile"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshots struct {
	snap *Snapshot
	err  error
}

func (f *fakeSnapshots) UserSnapshot(context.Context, uuid.UUID) (*Snapshot, error) {
	return f.snap, f.err
}

type fakeModel struct {
	fragments []string
	failAfter int // -1 = never fail
	prompt    string
}

func (f *fakeModel) StreamComplete(_ context.Context, prompt string) iter.Seq2[string, error] {
	f.prompt = prompt
	return func(yield func(string, error) bool) {
		for i, frag := range f.fragments {
			if f.failAfter >= 0 && i == f.failAfter {
				yield("", errors.New("model connection lost"))
				return
			}
			if !yield(frag, nil) {
				return
			}
		}
	}
}

func collect(t *testing.T, seq iter.Seq2[string, error]) ([]string, error) {
	t.Helper()
	var chunks []string
	for chunk, err := range seq {
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func testSnapshot() *Snapshot {
	missionID := uuid.New()
	return &Snapshot{
		Profile: &profile.Profile{
			FullName:        "Ava Green",
			Level:           3,
			TotalPoints:     240,
			StreakDays:      7,
			CarbonFootprint: 1200.5,
		},
		Missions: []*mission.UserMission{
			{
				Progress: mission.Progress{MissionID: missionID, Status: mission.StatusActive},
				Mission:  mission.Mission{ID: missionID, Title: "Meatless Monday"},
			},
		},
		DataPoints: []*envdata.DataPoint{
			{DataType: "energy_usage", Value: 12.5, Unit: "kWh"},
		},
	}
}

func TestConverseStreamsChunksInOrder(t *testing.T) {
	model := &fakeModel{fragments: []string{"Hello", " world"}, failAfter: -1}
	proxy := NewProxy(&fakeSnapshots{snap: testSnapshot()}, model)

	stream, err := proxy.Converse(context.Background(), uuid.New(), []Message{{Role: "user", Content: "Hi"}})
	require.NoError(t, err)

	chunks, streamErr := collect(t, stream)
	require.NoError(t, streamErr)
	assert.Equal(t, []string{"Hello", " world"}, chunks)
}

func TestConverseMidStreamFailureTruncates(t *testing.T) {
	model := &fakeModel{fragments: []string{"Hello", " world"}, failAfter: 1}
	proxy := NewProxy(&fakeSnapshots{snap: testSnapshot()}, model)

	stream, err := proxy.Converse(context.Background(), uuid.New(), []Message{{Role: "user", Content: "Hi"}})
	require.NoError(t, err)

	chunks, streamErr := collect(t, stream)
	require.Error(t, streamErr)
	// exactly one chunk, then the error; no fabricated completion
	assert.Equal(t, []string{"Hello"}, chunks)
}

func TestConverseRejectsEmptyConversation(t *testing.T) {
	proxy := NewProxy(&fakeSnapshots{}, &fakeModel{failAfter: -1})

	_, err := proxy.Converse(context.Background(), uuid.New(), nil)
	assert.Error(t, err)
}

func TestConverseDegradesWithoutSnapshot(t *testing.T) {
	model := &fakeModel{fragments: []string{"Hi there"}, failAfter: -1}
	proxy := NewProxy(&fakeSnapshots{err: errors.New("db unavailable")}, model)

	stream, err := proxy.Converse(context.Background(), uuid.New(), []Message{{Role: "user", Content: "Hello"}})
	require.NoError(t, err)

	chunks, streamErr := collect(t, stream)
	require.NoError(t, streamErr)
	assert.Equal(t, []string{"Hi there"}, chunks)
	assert.NotContains(t, model.prompt, "Current user context")
	assert.Contains(t, model.prompt, "GAIA")
}

func TestConverseStopsWhenConsumerStops(t *testing.T) {
	model := &fakeModel{fragments: []string{"a", "b", "c", "d"}, failAfter: -1}
	proxy := NewProxy(&fakeSnapshots{snap: testSnapshot()}, model)

	stream, err := proxy.Converse(context.Background(), uuid.New(), []Message{{Role: "user", Content: "Hi"}})
	require.NoError(t, err)

	var got []string
	for chunk, streamErr := range stream {
		require.NoError(t, streamErr)
		got = append(got, chunk)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestBuildPromptIncludesContextAndHistory(t *testing.T) {
	messages := []Message{
		{Role: "user", Content: "How do I cut my energy bill?"},
		{Role: "assistant", Content: "Start with your heating."},
		{Role: "user", Content: "What about lighting?"},
	}
	prompt := BuildPrompt(testSnapshot(), messages)

	assert.Contains(t, prompt, "Ava Green")
	assert.Contains(t, prompt, "Level: 3")
	assert.Contains(t, prompt, "Total Points: 240")
	assert.Contains(t, prompt, "Meatless Monday (active)")
	assert.Contains(t, prompt, "energy_usage: 12.5 kWh")
	// full history is forwarded, prior turns included
	assert.Contains(t, prompt, "How do I cut my energy bill?")
	assert.Contains(t, prompt, "GAIA: Start with your heating.")
	assert.True(t, strings.HasSuffix(prompt, "GAIA:"))
}

func TestBuildPromptWithoutSnapshot(t *testing.T) {
	prompt := BuildPrompt(nil, []Message{{Role: "user", Content: "Hello"}})

	assert.NotContains(t, prompt, "Current user context")
	assert.Contains(t, prompt, "User: Hello")
	assert.True(t, strings.HasSuffix(prompt, "GAIA:"))
}
