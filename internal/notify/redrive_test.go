package notify

import (
	"context"
	"errors"
	"testing"

	codedomain "directory-console/backend/internal/otpcode/domain"
)

type fakeRetryable struct {
	items  []*codedomain.Code
	marked map[string]string
	causes map[string]string
}

func (f *fakeRetryable) Retryable(context.Context, int32) ([]*codedomain.Code, error) {
	return f.items, nil
}

func (f *fakeRetryable) MarkSent(_ context.Context, id string) error {
	f.marked[id] = codedomain.StatusSent
	return nil
}

func (f *fakeRetryable) MarkFailed(_ context.Context, id, cause string) error {
	f.marked[id] = codedomain.StatusFailed
	if f.causes == nil {
		f.causes = map[string]string{}
	}
	f.causes[id] = cause
	return nil
}

type fakeCodeSender struct {
	failFor map[string]error
	sent    []string
}

func (f *fakeCodeSender) SendCode(_ context.Context, destination, code string) error {
	if err, ok := f.failFor[destination]; ok {
		return err
	}
	f.sent = append(f.sent, destination)
	return nil
}

func TestRedrive_MarksOutcomePerCode(t *testing.T) {
	codes := &fakeRetryable{
		items: []*codedomain.Code{
			{ID: "a", Destination: "111", Code: "123456"},
			{ID: "b", Destination: "222", Code: "654321"},
		},
		marked: map[string]string{},
	}
	sender := &fakeCodeSender{failFor: map[string]error{"222": errors.New("still down")}}
	w := NewRedriveWorker("sms", codes, sender)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if codes.marked["a"] != codedomain.StatusSent {
		t.Errorf("code a = %q", codes.marked["a"])
	}
	if codes.marked["b"] != codedomain.StatusFailed {
		t.Errorf("code b = %q", codes.marked["b"])
	}
	if codes.causes["b"] != "still down" {
		t.Errorf("cause b = %q", codes.causes["b"])
	}
	if len(sender.sent) != 1 || sender.sent[0] != "111" {
		t.Errorf("sent = %v", sender.sent)
	}
}

func TestRedrive_EmptyQueue(t *testing.T) {
	w := NewRedriveWorker("sms", &fakeRetryable{marked: map[string]string{}}, &fakeCodeSender{})
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
}
