package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

// respondRecorder stubs the one tele.Context method the callback adapter
// acknowledges through.
type respondRecorder struct {
	tele.Context
	responses []*tele.CallbackResponse
}

func (r *respondRecorder) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 {
		r.responses = append(r.responses, resp[0])
		return nil
	}
	r.responses = append(r.responses, &tele.CallbackResponse{})
	return nil
}

func TestCallbackAnswerAcknowledgesOnce(t *testing.T) {
	rec := &respondRecorder{}
	ev := &callbackEvent{c: rec, cb: &tele.Callback{Unique: "cancel"}}

	require.NoError(t, ev.Answer("Заявка отменена"))
	// Follow-up acknowledgements must not hit the API a second time.
	require.NoError(t, ev.Answer("повтор"))
	Ack(ev)

	require.Len(t, rec.responses, 1)
	assert.Equal(t, "Заявка отменена", rec.responses[0].Text)
}

func TestAckAnswersSilentCallbacks(t *testing.T) {
	rec := &respondRecorder{}
	ev := &callbackEvent{c: rec, cb: &tele.Callback{Unique: "start"}}

	Ack(ev)

	require.Len(t, rec.responses, 1)
	assert.Empty(t, rec.responses[0].Text)
}

func TestAckIgnoresMessageEvents(t *testing.T) {
	// Message events acknowledge by replying; Ack must not touch them.
	Ack(&messageEvent{})
}
