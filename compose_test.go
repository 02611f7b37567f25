// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose2(t *testing.T) {
	t.Run("success path", func(t *testing.T) {
		op1 := FuncAdapter[int, string](func(ctx context.Context, n int) (string, error) {
			return "hello", nil
		})
		op2 := FuncAdapter[string, int](func(ctx context.Context, s string) (int, error) {
			return len(s), nil
		})

		composed := Compose2[int, string, int](op1, op2)
		result, err := composed.Call(context.Background(), 42)

		require.NoError(t, err)
		assert.Equal(t, 5, result)
	})

	t.Run("first operation fails", func(t *testing.T) {
		wantErr := errors.New("op1 failed")
		op1 := FuncAdapter[int, string](func(ctx context.Context, n int) (string, error) {
			return "", wantErr
		})
		op2 := FuncAdapter[string, int](func(ctx context.Context, s string) (int, error) {
			t.Fatal("op2 should not be called")
			return 0, nil
		})

		composed := Compose2[int, string, int](op1, op2)
		_, err := composed.Call(context.Background(), 42)

		require.ErrorIs(t, err, wantErr)
	})

	t.Run("second operation fails", func(t *testing.T) {
		wantErr := errors.New("op2 failed")
		op1 := FuncAdapter[int, string](func(ctx context.Context, n int) (string, error) {
			return "hello", nil
		})
		op2 := FuncAdapter[string, int](func(ctx context.Context, s string) (int, error) {
			return 0, wantErr
		})

		composed := Compose2[int, string, int](op1, op2)
		_, err := composed.Call(context.Background(), 42)

		require.ErrorIs(t, err, wantErr)
	})
}

// Every arity runs its stages in order, one increment per stage.
func TestComposeArities(t *testing.T) {
	op := FuncAdapter[int, int](func(ctx context.Context, n int) (int, error) { return n + 1, nil })

	tests := []struct {
		// name is the composition under test.
		name string

		// fn is the composed pipeline.
		fn Func[int, int]

		// want is the expected number of stages executed.
		want int
	}{
		{"Compose3", Compose3[int, int, int, int](op, op, op), 3},
		{"Compose4", Compose4[int, int, int, int, int](op, op, op, op), 4},
		{"Compose5", Compose5[int, int, int, int, int, int](op, op, op, op, op), 5},
		{"Compose6", Compose6[int, int, int, int, int, int, int](op, op, op, op, op, op), 6},
		{"Compose7", Compose7[int, int, int, int, int, int, int, int](op, op, op, op, op, op, op), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.fn.Call(context.Background(), 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

// A failing middle stage stops the pipeline.
func TestComposeStopsOnError(t *testing.T) {
	wantErr := errors.New("stage failed")
	calls := 0
	ok := FuncAdapter[int, int](func(ctx context.Context, n int) (int, error) {
		calls++
		return n, nil
	})
	fail := FuncAdapter[int, int](func(ctx context.Context, n int) (int, error) {
		return 0, wantErr
	})

	composed := Compose5[int, int, int, int, int, int](ok, ok, fail, ok, ok)
	_, err := composed.Call(context.Background(), 0)

	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 2, calls)
}

func TestConstFunc(t *testing.T) {
	cf := ConstFunc("constant value")
	result, err := cf.Call(context.Background(), Unit{})

	require.NoError(t, err)
	assert.Equal(t, "constant value", result)
}
