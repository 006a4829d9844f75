package groutine

import (
	"context"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGo_NameAndLabel(t *testing.T) {
	var name, label string
	done := Go(context.Background(), "worker-42", func(ctx context.Context) {
		name = GetName(ctx)
		label, _ = pprof.Label(ctx, "goroutine_name")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not finish")
	}
	assert.Equal(t, "worker-42", name)
	assert.Equal(t, "worker-42", label)
}

func TestGo_NilParentContext(t *testing.T) {
	//nolint:staticcheck // nil parent is part of the contract
	done := Go(nil, "nil-parent", func(ctx context.Context) {
		assert.NotNil(t, ctx)
	})
	<-done
}

func TestGetName_Unnamed(t *testing.T) {
	assert.Empty(t, GetName(context.Background()))
	assert.Empty(t, GetName(nil)) //nolint:staticcheck
}
