package client

import (
	"testing"
	"time"

	"github.com/shiv248/coedit/pkg/document"
)

func TestApplyLocalShipsImmediatelyWithNoDebounce(t *testing.T) {
	var sent []Submission
	c := New(Options{Send: func(s Submission) { sent = append(sent, s) }})

	c.ApplyLocal([]document.Operation{document.InsertText(0, 0, "hi", document.OriginInput)})

	if len(sent) != 1 {
		t.Fatalf("expected one immediate submission, got %d", len(sent))
	}
	if c.GetState() != StateAwaitingConfirm {
		t.Fatalf("expected state awaiting_confirm, got %s", c.GetState())
	}
}

func TestApplyLocalWhileAwaitingConfirmBuffers(t *testing.T) {
	var sent []Submission
	c := New(Options{Send: func(s Submission) { sent = append(sent, s) }})

	c.ApplyLocal([]document.Operation{document.InsertText(0, 0, "a", document.OriginInput)})
	c.ApplyLocal([]document.Operation{document.InsertText(0, 1, "b", document.OriginInput)})

	if len(sent) != 1 {
		t.Fatalf("a second local edit must not ship until the first is acked, got %d sends", len(sent))
	}
	if c.GetState() != StateAwaitingWithBuffer {
		t.Fatalf("expected state awaiting_with_buffer, got %s", c.GetState())
	}
}

func TestAckFromAwaitingWithBufferShipsTheBuffer(t *testing.T) {
	var sent []Submission
	c := New(Options{Send: func(s Submission) { sent = append(sent, s) }})

	c.ApplyLocal([]document.Operation{document.InsertText(0, 0, "a", document.OriginInput)})
	c.ApplyLocal([]document.Operation{document.InsertText(0, 1, "b", document.OriginInput)})

	c.HandleMessage(InboundMessage{Ack: &AckMessage{Revision: 1}})

	if len(sent) != 2 {
		t.Fatalf("expected the buffered batch to ship on ack, got %d sends", len(sent))
	}
	if c.GetState() != StateAwaitingConfirm {
		t.Fatalf("expected state awaiting_confirm after shipping the buffer, got %s", c.GetState())
	}
	if c.GetRevision() != 1 {
		t.Fatalf("expected revision 1, got %d", c.GetRevision())
	}
}

func TestAckFromAwaitingConfirmReturnsToSynchronized(t *testing.T) {
	c := New(Options{Send: func(Submission) {}})
	c.ApplyLocal([]document.Operation{document.InsertText(0, 0, "a", document.OriginInput)})
	c.HandleMessage(InboundMessage{Ack: &AckMessage{Revision: 1}})

	if c.GetState() != StateSynchronized {
		t.Fatalf("expected state synchronized, got %s", c.GetState())
	}
	if c.GetRevision() != 1 {
		t.Fatalf("expected revision 1, got %d", c.GetRevision())
	}
}

func TestHandleOperationWhileSynchronizedEmitsDirectly(t *testing.T) {
	var received []document.Operation
	c := New(Options{
		Send:               func(Submission) {},
		OnRemoteOperations: func(ops []document.Operation) { received = ops },
	})

	remote := []document.Operation{document.InsertText(0, 0, "remote", document.OriginRemote)}
	c.HandleMessage(InboundMessage{Operation: &OperationMessage{Revision: 1, Ops: remote}})

	if len(received) != 1 {
		t.Fatalf("expected remote op to be emitted, got %d", len(received))
	}
	if c.GetRevision() != 1 {
		t.Fatalf("expected revision 1, got %d", c.GetRevision())
	}
}

func TestHandleOperationWhileAwaitingConfirmTransformsOutstanding(t *testing.T) {
	var sentSecond Submission
	sendCount := 0
	c := New(Options{Send: func(s Submission) {
		sendCount++
		if sendCount == 1 {
			return
		}
		sentSecond = s
	}})

	// Local op at column 0, outstanding and awaiting an ack.
	c.ApplyLocal([]document.Operation{document.InsertText(0, 0, "LOCAL", document.OriginInput)})

	remote := []document.Operation{document.InsertText(0, 0, "REMOTE", document.OriginRemote)}
	c.HandleMessage(InboundMessage{Operation: &OperationMessage{Revision: 1, Ops: remote}})

	if c.GetState() != StateAwaitingConfirm {
		t.Fatalf("expected to remain awaiting_confirm, got %s", c.GetState())
	}
	// The remote op wins the tie at column 0, so the outstanding local op
	// shifts past the remote text.
	if len(c.outstanding) != 1 || c.outstanding[0].Column != len("REMOTE") {
		t.Fatalf("expected outstanding op shifted to column %d, got %+v", len("REMOTE"), c.outstanding)
	}
	_ = sentSecond
}

func TestDebounceBuffersUntilTimerFires(t *testing.T) {
	var sent []Submission
	c := New(Options{
		DebounceDelay: 20 * time.Millisecond,
		Send:          func(s Submission) { sent = append(sent, s) },
	})

	c.ApplyLocal([]document.Operation{document.InsertText(0, 0, "a", document.OriginInput)})
	if len(sent) != 0 {
		t.Fatalf("expected debounce to delay the send, got %d immediate sends", len(sent))
	}

	time.Sleep(60 * time.Millisecond)
	if len(sent) != 1 {
		t.Fatalf("expected exactly one send after the debounce timer fires, got %d", len(sent))
	}
}

func TestDestroyCancelsTimerAndResetsState(t *testing.T) {
	c := New(Options{
		DebounceDelay: 50 * time.Millisecond,
		Send:          func(Submission) {},
	})
	c.ApplyLocal([]document.Operation{document.InsertText(0, 0, "a", document.OriginInput)})
	c.Destroy()

	if c.GetState() != StateSynchronized {
		t.Fatalf("expected destroyed client to report synchronized, got %s", c.GetState())
	}

	// A message arriving after Destroy must be a no-op, not a panic.
	c.HandleMessage(InboundMessage{Ack: &AckMessage{Revision: 99}})
	c.ApplyLocal([]document.Operation{document.InsertText(0, 0, "b", document.OriginInput)})
}
