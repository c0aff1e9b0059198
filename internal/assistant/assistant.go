package assistant

import (
	"context"
	"iter"
	"log"

	"ecoQuestAPI/internal/progression"
	"ecoQuestAPI/internal/types/envdata"
	"ecoQuestAPI/internal/types/mission"
	"ecoQuestAPI/internal/types/profile"

	"github.com/google/uuid"
)

// Message is one turn of the conversation as sent by the client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// Snapshot is the user context woven into the prompt: profile totals, the
// five most recently started missions and the ten most recent datapoints.
type Snapshot struct {
	Profile    *profile.Profile
	Missions   []*mission.UserMission
	DataPoints []*envdata.DataPoint
}

// SnapshotSource fetches the context snapshot from durable state.
type SnapshotSource interface {
	UserSnapshot(ctx context.Context, userID uuid.UUID) (*Snapshot, error)
}

// ModelClient streams completions from the generative model. The sequence is
// lazy, single-pass and not restartable; a non-nil error ends it.
type ModelClient interface {
	StreamComplete(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// Proxy turns a chat message plus the user's climate-progress snapshot into
// a streamed reply from the model.
type Proxy struct {
	snapshots SnapshotSource
	model     ModelClient
}

func NewProxy(snapshots SnapshotSource, model ModelClient) *Proxy {
	return &Proxy{snapshots: snapshots, model: model}
}

// Converse builds the prompt and opens the model stream. A failed snapshot
// fetch is downgraded to an empty context; the conversation still proceeds
// without personalization. Chunks arrive in model order, unbatched, and the
// stream stops as soon as the caller stops pulling or ctx is cancelled.
func (p *Proxy) Converse(ctx context.Context, userID uuid.UUID, messages []Message) (iter.Seq2[string, error], error) {
	if len(messages) == 0 {
		return nil, &progression.ValidationError{Field: "messages", Reason: "at least one message is required"}
	}

	var snap *Snapshot
	if userID != uuid.Nil {
		s, err := p.snapshots.UserSnapshot(ctx, userID)
		if err != nil {
			log.Printf("assistant: snapshot fetch failed for user %s, continuing without context: %v", userID, err)
		} else {
			snap = s
		}
	}

	prompt := BuildPrompt(snap, messages)
	return p.model.StreamComplete(ctx, prompt), nil
}
