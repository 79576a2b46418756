package observability

import (
	"errors"
	"testing"
	"time"
)

func TestObserverFuncForwards(t *testing.T) {
	var got OperationContext
	obs := ObserverFunc(func(ctx OperationContext) { got = ctx })

	obs.ObserveOperation(OperationContext{Component: "qdrant", Operation: "query", Duration: time.Millisecond})

	if got.Component != "qdrant" || got.Operation != "query" {
		t.Fatalf("unexpected context forwarded: %#v", got)
	}
}

func TestStatus(t *testing.T) {
	if Status(nil) != "success" {
		t.Fatalf("expected success for nil error")
	}
	if Status(errors.New("boom")) != "error" {
		t.Fatalf("expected error label")
	}
}
