package worker

import (
	"context"
	"strings"
	"testing"
)

func TestRunRequiresMasterKey(t *testing.T) {
	err := Run(context.Background(), RuntimeConfig{})
	if err == nil {
		t.Fatal("expected error without master key")
	}
	if !strings.Contains(err.Error(), "master key") {
		t.Fatalf("err = %v, want master key requirement", err)
	}
}
